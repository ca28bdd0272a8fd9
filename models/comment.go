package models

import "time"

// Comment is a first-level answer to a post.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"index;not null" json:"post_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Replies     []Reply   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// CommentView adds the author's username.
type CommentView struct {
	ID             uint      `json:"id"`
	PostID         uint      `json:"post_id"`
	UserID         uint      `json:"user_id"`
	CommentText    string    `json:"comment_text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AuthorUsername string    `json:"author_username"`
}
