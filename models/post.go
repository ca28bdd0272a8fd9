package models

import "time"

// Post is a thread opener inside a community.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  *string   `gorm:"size:1024" json:"image_url"`
	Community string    `gorm:"size:50;not null;index" json:"community"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// PostView is the listing shape: post columns plus author and thread counts.
type PostView struct {
	ID             uint      `json:"id"`
	UserID         uint      `json:"user_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	ImageURL       *string   `json:"image_url"`
	Community      string    `json:"community"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AuthorUsername string    `json:"author_username"`
	CommentCount   int64     `json:"comment_count"`
	ReplyCount     int64     `json:"reply_count"`
}
