package model

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every valid status value.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled}

// Valid reports whether the status is a known member of the set.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// TaskPriority represents the priority of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskPriorities lists every valid priority value.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent}

// Valid reports whether the priority is a known member of the set.
func (p TaskPriority) Valid() bool {
	for _, v := range TaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Task represents a unit of work owned by a single user.
type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"size:200;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(50);not null;default:'pending';index"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(50);not null;default:'medium';index"`
	DueDate     *time.Time   `json:"due_date"`
	CompletedAt *time.Time   `json:"completed_at"`
	UserID      uint         `json:"user_id" gorm:"not null;index"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	User User  `json:"-" gorm:"foreignKey:UserID"`
	Tags []Tag `json:"tags" gorm:"many2many:task_tags;"`
}

// IsOverdue reports whether the task is past due and not completed.
func (t *Task) IsOverdue() bool {
	if t.DueDate != nil && t.Status != TaskStatusCompleted {
		return time.Now().UTC().After(*t.DueDate)
	}
	return false
}

// IsCompleted reports whether the task is in the completed state.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// MarshalJSON adds the derived is_overdue and is_completed fields.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	if t.Tags == nil {
		t.Tags = []Tag{}
	}
	return json.Marshal(struct {
		alias
		IsOverdue   bool `json:"is_overdue"`
		IsCompleted bool `json:"is_completed"`
	}{
		alias:       alias(t),
		IsOverdue:   t.IsOverdue(),
		IsCompleted: t.IsCompleted(),
	})
}

// TaskTag is the explicit join-table entity behind the Task/Tag relation.
// Each association carries its own created_at; replacing a task's tag set
// rewrites the rows, so the timestamps reset on every update.
type TaskTag struct {
	TaskID    uint      `json:"task_id" gorm:"primaryKey"`
	TagID     uint      `json:"tag_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the join table name shared with the many2many relation.
func (TaskTag) TableName() string {
	return "task_tags"
}
