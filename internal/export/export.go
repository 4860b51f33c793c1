// Package export flattens tasks into downloadable CSV or JSON documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"taskforge/internal/model"
)

// TaskRow is the flattened export form of a task: nested objects collapse to
// scalar columns and tag names join into one field.
type TaskRow struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date"`
	CompletedAt  string `json:"completed_at"`
	IsOverdue    bool   `json:"is_overdue"`
	IsCompleted  bool   `json:"is_completed"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	UserID       uint   `json:"user_id"`
	UserUsername string `json:"user_username"`
	UserEmail    string `json:"user_email"`
	Tags         string `json:"tags"`
}

var csvHeader = []string{
	"id", "title", "description", "status", "priority",
	"due_date", "completed_at", "is_overdue", "is_completed",
	"created_at", "updated_at", "user_id", "user_username", "user_email", "tags",
}

// FlattenTasks prepares tasks for export.
func FlattenTasks(tasks []model.Task) []TaskRow {
	rows := make([]TaskRow, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]

		names := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			names = append(names, tag.Name)
		}

		rows = append(rows, TaskRow{
			ID:           t.ID,
			Title:        t.Title,
			Description:  t.Description,
			Status:       string(t.Status),
			Priority:     string(t.Priority),
			DueDate:      formatTime(t.DueDate),
			CompletedAt:  formatTime(t.CompletedAt),
			IsOverdue:    t.IsOverdue(),
			IsCompleted:  t.IsCompleted(),
			CreatedAt:    t.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
			UserID:       t.UserID,
			UserUsername: t.User.Username,
			UserEmail:    t.User.Email,
			Tags:         strings.Join(names, ", "),
		})
	}
	return rows
}

// TasksToCSV renders the flattened rows as a CSV document.
func TasksToCSV(rows []TaskRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Title,
			r.Description,
			r.Status,
			r.Priority,
			r.DueDate,
			r.CompletedAt,
			strconv.FormatBool(r.IsOverdue),
			strconv.FormatBool(r.IsCompleted),
			r.CreatedAt,
			r.UpdatedAt,
			strconv.FormatUint(uint64(r.UserID), 10),
			r.UserUsername,
			r.UserEmail,
			r.Tags,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// TasksToJSON renders the flattened rows as an indented JSON document.
func TasksToJSON(rows []TaskRow) ([]byte, error) {
	return json.MarshalIndent(rows, "", "  ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
