package models

import "time"

type Artwork struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FilePath    string    `json:"filePath"`
	AuthorID    int64     `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`

	Author *UserSummary `json:"author,omitempty"`
}
