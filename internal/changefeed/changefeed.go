// Package changefeed broadcasts entity changes to live subscribers such as the
// admin dashboard socket and the doctor cache.
package changefeed

import (
	"context"
	"time"
)

// Collection names the entity set that changed.
type Collection string

const (
	Doctors                Collection = "doctors"
	AvailabilityRules      Collection = "availability_rules"
	AvailabilityExceptions Collection = "availability_exceptions"
	Appointments           Collection = "appointments"
)

// Op is the kind of change.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change is one notification on the feed.
type Change struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	DoctorID   string     `json:"doctor_id,omitempty"`
	Op         Op         `json:"op"`
	At         time.Time  `json:"at"`
}

// Publisher emits changes. Publishing is best effort: callers log failures
// and never roll back a committed write because of them.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Feed is a Publisher that can also be subscribed to. The returned channel is
// closed once ctx is done.
type Feed interface {
	Publisher
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// Notify stamps and publishes a change, ignoring a nil publisher.
func Notify(ctx context.Context, p Publisher, c Collection, id, doctorID string, op Op) error {
	if p == nil {
		return nil
	}
	return p.Publish(ctx, Change{
		Collection: c,
		ID:         id,
		DoctorID:   doctorID,
		Op:         op,
		At:         time.Now().UTC(),
	})
}
