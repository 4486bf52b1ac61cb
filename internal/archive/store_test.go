package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	putErr  error
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(in.Body)
	m.objects[aws.ToString(in.Key)] = body
	m.meta[aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestStorePutAndGet(t *testing.T) {
	client := newMemS3()
	store := NewStore(client, "payloads", nil)
	at := time.Date(2030, 1, 1, 7, 0, 0, 0, time.UTC)

	key, err := store.Put(context.Background(), "req-1", Record{
		Endpoint:   "appointment",
		Outcome:    "accepted",
		ReceivedAt: at,
		Payload:    json.RawMessage(`{"doctor_id":"d1","caller_number":"5551234567","patient_tc_number":"12345678901"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "webhooks/retell/appointment/2030/01/01/req-1.json", key)
	assert.Equal(t, "accepted", client.meta[key]["outcome"])

	rec, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Payload, &payload))
	assert.Equal(t, "d1", payload["doctor_id"])
	assert.Equal(t, "[REDACTED]", payload["patient_tc_number"])
	assert.Equal(t, "sha256:"+HashPhone("5551234567"), payload["caller_number"])
	assert.NotContains(t, string(client.objects[key]), "12345678901")

	_, err = store.Get(context.Background(), "webhooks/retell/appointment/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDisabledIsNoop(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())
	key, err := store.Put(context.Background(), "x", Record{Endpoint: "cancel"})
	require.NoError(t, err)
	assert.Empty(t, key)

	var nilStore *Store
	assert.False(t, nilStore.Enabled())
}

func TestStorePutError(t *testing.T) {
	client := newMemS3()
	client.putErr = errors.New("throttled")
	_, err := NewStore(client, "payloads", nil).Put(context.Background(), "x", Record{Endpoint: "cancel"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestScrubPayloadRejectsNonObjects(t *testing.T) {
	assert.JSONEq(t, "null", string(ScrubPayload(json.RawMessage(`[1,2]`))))
	assert.JSONEq(t, "null", string(ScrubPayload(nil)))
}
