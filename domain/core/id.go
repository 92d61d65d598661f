package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// UploadID identifies a stored spreadsheet upload.
type UploadID ID

func NewUploadID() UploadID { return UploadID(NewID()) }

func (id UploadID) String() string { return ID(id).String() }

// ParseUploadID accepts any well-formed UUID.
func ParseUploadID(s string) (UploadID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("upload ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid upload ID %q: %w", s, err)
	}
	return UploadID(parsed.String()), nil
}
