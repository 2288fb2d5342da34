package uuid

import (
	"bytes"

	google_uuid "github.com/google/uuid"
)

// UUID wraps google/uuid so that gin can bind it from URI and query parameters.
type UUID struct {
	google_uuid.UUID
}

var Nil UUID

func New() UUID {
	return UUID{google_uuid.New()}
}

func NewString() string {
	return google_uuid.NewString()
}

// UnmarshalParam implements the uuid.Parse method
// from https://pkg.go.dev/github.com/google/uuid#Parse
// for UUID
func (u *UUID) UnmarshalParam(p string) error {
	if p == "" {
		*u = Nil
		return nil
	}

	parsed, e := google_uuid.Parse(p)
	if e != nil {
		return e
	}

	*u = UUID{parsed}
	return nil
}

// Ptr returns a pointer to the wrapped UUID or nil if it is the Nil UUID.
func (u UUID) Ptr() *google_uuid.UUID {
	if u == Nil {
		return nil
	}

	id := u.UUID
	return &id
}

// Compare orders UUIDs by their byte representation, which is the same
// order as their canonical string form.
func Compare(a, b google_uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
