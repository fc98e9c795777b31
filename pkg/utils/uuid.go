package utils

import "github.com/google/uuid"

// NewSortableID returns a UUIDv7, whose string form sorts by creation time.
func NewSortableID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
