package models

import "time"

// Media is one stored item. InternalID is the primary key and never leaves
// the service; ShortID is the only handle exposed to callers.
type Media struct {
	InternalID string     `bson:"_id" json:"id"`
	ShortID    string     `bson:"short_id" json:"short_id"`
	FileName   string     `bson:"file_name" json:"file_name"`
	MimeType   string     `bson:"mime_type" json:"mime_type"`
	SizeBytes  int64      `bson:"size_bytes" json:"size_bytes"`
	StorageKey string     `bson:"storage_key" json:"-"`
	BackendURL string     `bson:"backend_url" json:"-"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	DeleteAt   *time.Time `bson:"delete_at,omitempty" json:"delete_at,omitempty"`
}
