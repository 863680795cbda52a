// Package history records conversion attempts.
//
// Every call through the pipeline, successful or rejected, becomes one
// [Entry]. The CLI keeps entries in a local SQLite file; a server deployment
// can share them through MongoDB. History is informational only: a failing
// store never fails a conversion.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// DefaultLimit is the number of entries List returns when limit <= 0.
const DefaultLimit = 50

// Entry is one conversion attempt.
type Entry struct {
	ID   string    `json:"id" bson:"_id"`
	Time time.Time `json:"time" bson:"time"`

	InputName string `json:"input_name" bson:"input_name"`
	InputHash string `json:"input_hash" bson:"input_hash"`

	// Source and Target are collimator family keys ("Millenium", "HD").
	// Both are empty when the plan was rejected before identification.
	Source string `json:"source,omitempty" bson:"source,omitempty"`
	Target string `json:"target,omitempty" bson:"target,omitempty"`

	Beams         int `json:"beams" bson:"beams"`
	ControlPoints int `json:"control_points" bson:"control_points"`

	OutputUID string         `json:"output_uid,omitempty" bson:"output_uid,omitempty"`
	Warnings  []errs.Warning `json:"warnings,omitempty" bson:"warnings,omitempty"`

	// Code and Message describe the error of a rejected attempt.
	Code    errs.Code `json:"code,omitempty" bson:"code,omitempty"`
	Message string    `json:"message,omitempty" bson:"message,omitempty"`

	Duration time.Duration `json:"duration" bson:"duration"`
	CacheHit bool          `json:"cache_hit" bson:"cache_hit"`
}

// OK reports whether the attempt produced a converted plan.
func (e Entry) OK() bool { return e.Code == "" }

// Store persists entries.
type Store interface {
	// Record appends e, assigning an ID and time when they are unset.
	Record(ctx context.Context, e Entry) error

	// List returns the most recent entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)

	Close() error
}

// prepare fills the ID and time of a new entry.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Time = e.Time.UTC()
	return e
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// Nop discards entries. It backs the "none" history backend.
type Nop struct{}

// Record implements Store.
func (Nop) Record(context.Context, Entry) error { return nil }

// List implements Store.
func (Nop) List(context.Context, int) ([]Entry, error) { return nil, nil }

// Close implements Store.
func (Nop) Close() error { return nil }

var _ Store = Nop{}
