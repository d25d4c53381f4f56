package models

import "time"

type VideoStatus string

const (
	VideoStatusUploaded   VideoStatus = "uploaded"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusRemoved    VideoStatus = "removed"
)

type Video struct {
	ID           string
	UserID       string
	Title        string
	Bucket       string
	ObjectKey    string
	Format       string
	SizeBytes    int64
	DurationSecs float64
	ThumbnailKey *string
	Caption      *string
	Status       VideoStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
