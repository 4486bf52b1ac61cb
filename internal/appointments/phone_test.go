package appointments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{name: "bare digits get plus", in: "5551234567", want: "+5551234567"},
		{name: "formatting stripped", in: "(555) 123-4567", want: "+5551234567"},
		{name: "plus input kept as is", in: "+905321234567", want: "+905321234567"},
		{name: "plus with spaces kept", in: "+90 532 123 45 67", want: "+90 532 123 45 67"},
		{name: "fifteen digits", in: "123456789012345", want: "+123456789012345"},
		{name: "nine digits", in: "555123456", err: ErrInvalidPhone},
		{name: "sixteen digits", in: "1234567890123456", err: ErrInvalidPhone},
		{name: "letters only", in: "call me", err: ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneKeepsDigitOrder(t *testing.T) {
	got, err := NormalizePhone("98-76-54-32-10")
	require.NoError(t, err)
	assert.Equal(t, "+9876543210", got)
	assert.True(t, strings.HasPrefix(got, "+"))

	again, err := NormalizePhone(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}
