package models

import "time"

// Reply answers a comment. Threads stop at this depth.
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"index;not null" json:"comment_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ReplyText string    `gorm:"type:text;not null" json:"reply_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
}

type ReplyView struct {
	ID             uint      `json:"id"`
	CommentID      uint      `json:"comment_id"`
	UserID         uint      `json:"user_id"`
	ReplyText      string    `json:"reply_text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AuthorUsername string    `json:"author_username"`
}
