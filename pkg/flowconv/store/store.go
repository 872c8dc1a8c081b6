// Package store archives emitted flows.
//
// Archiving happens after a conversion and outside of it; the conversion
// core never touches a Store.
package store

import (
	"errors"
	"time"
)

// Record is one archived flow.
type Record struct {
	FlowID string
	Name   string
	Mode   string
	// Fingerprint is the flow's identity-independent structure hash.
	Fingerprint string
	// Data is the serialized flow document.
	Data      []byte
	CreatedAt time.Time
}

// Info describes a record without its data.
type Info struct {
	FlowID      string
	Name        string
	Mode        string
	Fingerprint string
	// Sequence orders records by first save.
	Sequence  int
	CreatedAt time.Time
	Size      int64
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores r, replacing a record with the same FlowID.
	// A zero CreatedAt is set to the current time.
	Save(r Record) error

	// Load returns the record for flowID, or ErrNotFound.
	Load(flowID string) (Record, error)

	// List returns every record in save order.
	List() ([]Info, error)

	// FindByFingerprint returns the records with the given fingerprint in
	// save order.
	FindByFingerprint(fingerprint string) ([]Info, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(flowID string) error

	// Close releases resources. Further calls return ErrStoreClosed.
	Close() error
}

// Sentinel errors.
var (
	ErrNotFound    = errors.New("flow record not found")
	ErrStoreClosed = errors.New("flow store closed")
)
