package models

import "time"

// UploadedFile records an uploaded image until a post claims it or the sweeper removes it.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	BlobName  string    `gorm:"size:255;not null;uniqueIndex" json:"blob_name"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	Attached  bool      `gorm:"not null;default:false;index" json:"attached"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every table in migration order; parents precede children so foreign keys resolve.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Comment{}, &Reply{}, &UploadedFile{}}
}
