package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskforge/internal/model"
)

func sampleTasks() []model.Task {
	due := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	done := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return []model.Task{
		{
			ID:          1,
			Title:       "Write report",
			Description: "Quarterly numbers, with \"quotes\" and, commas",
			Status:      model.TaskStatusCompleted,
			Priority:    model.TaskPriorityHigh,
			DueDate:     &due,
			CompletedAt: &done,
			UserID:      7,
			User:        model.User{ID: 7, Username: "jane", Email: "jane@example.com"},
			Tags: []model.Tag{
				{ID: 1, Name: "work"},
				{ID: 2, Name: "urgent"},
			},
		},
		{
			ID:       2,
			Title:    "No frills",
			Status:   model.TaskStatusPending,
			Priority: model.TaskPriorityLow,
			UserID:   7,
			User:     model.User{ID: 7, Username: "jane", Email: "jane@example.com"},
		},
	}
}

func TestFlattenTasks(t *testing.T) {
	rows := FlattenTasks(sampleTasks())

	assert.Len(t, rows, 2)

	assert.Equal(t, "work, urgent", rows[0].Tags)
	assert.Equal(t, "jane", rows[0].UserUsername)
	assert.Equal(t, "2024-01-15T10:30:00Z", rows[0].DueDate)
	assert.True(t, rows[0].IsCompleted)

	assert.Empty(t, rows[1].Tags)
	assert.Empty(t, rows[1].DueDate)
	assert.Empty(t, rows[1].CompletedAt)
	assert.False(t, rows[1].IsCompleted)
}

func TestTasksToCSV(t *testing.T) {
	data, err := TasksToCSV(FlattenTasks(sampleTasks()))
	assert.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	assert.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "Quarterly numbers, with \"quotes\" and, commas", records[1][2])
	assert.Equal(t, "work, urgent", records[1][14])
	assert.Equal(t, "pending", records[2][3])
}

func TestTasksToCSV_Empty(t *testing.T) {
	data, err := TasksToCSV(nil)
	assert.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTasksToJSON(t *testing.T) {
	data, err := TasksToJSON(FlattenTasks(sampleTasks()))
	assert.NoError(t, err)

	var decoded []map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, "Write report", decoded[0]["title"])
	assert.Equal(t, "work, urgent", decoded[0]["tags"])
}
