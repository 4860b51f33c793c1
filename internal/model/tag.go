package model

import "time"

// DefaultTagColor is applied when a tag is created without a color.
const DefaultTagColor = "#808080"

// Tag categorizes tasks. Tags are shared across users and owned by no one.
type Tag struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:50;not null"`
	Color       string    `json:"color" gorm:"size:7;default:'#808080'"`
	Description string    `json:"description" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// TaskCount is filled by the repository, not persisted.
	TaskCount int64 `json:"task_count" gorm:"-"`

	// Relations
	Tasks []Task `json:"-" gorm:"many2many:task_tags;"`
}
