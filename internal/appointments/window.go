package appointments

import (
	"strings"
	"time"
)

// Window bounds how far ahead a slot may be booked.
type Window struct {
	MinLead    time.Duration
	MaxHorizon time.Duration
}

// DefaultWindow is one hour of lead time and a 90 day horizon.
var DefaultWindow = Window{MinLead: time.Hour, MaxHorizon: 90 * 24 * time.Hour}

// Check rejects instants closer than MinLead or further than MaxHorizon from now.
// Both boundaries are inclusive.
func (w Window) Check(now, at time.Time) error {
	if at.Before(now.Add(w.MinLead)) {
		return ErrTooSoon
	}
	if at.After(now.Add(w.MaxHorizon)) {
		return ErrTooFar
	}
	return nil
}

var slotLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// ParseSlot reads a YYYY-MM-DD date and an HH:mm time as wall-clock time in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrInvalidDateTime
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range slotLayouts {
		if t, err := time.ParseInLocation(layout, date+" "+clock, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}
