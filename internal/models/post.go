package models

import "time"

type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusDispatched PostStatus = "dispatched"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCanceled   PostStatus = "canceled"
)

type Post struct {
	ID            string
	UserID        string
	VideoID       *string
	Caption       string
	Platforms     []string
	ScheduledAt   time.Time
	Status        PostStatus
	ExternalID    *string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
