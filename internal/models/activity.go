package models

import "time"

// ActivityRecord is an audit entry for a mutating admin operation.
type ActivityRecord struct {
	ID           string
	AdminID      string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	Success      bool
	CreatedAt    time.Time
}

type Setting struct {
	Key       string
	Value     string
	UpdatedBy string
	UpdatedAt time.Time
}
