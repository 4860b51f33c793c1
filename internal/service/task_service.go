package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskforge/internal/cache"
	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/query"
	"taskforge/internal/repository"
	"taskforge/internal/validate"
)

const statsCacheTTL = 5 * time.Minute

// TaskCreateInput carries the fields accepted when creating a task.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	TagIDs      []uint
}

// TaskUpdateInput carries partial updates; nil fields are left untouched.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	TagIDs      *[]uint
}

// PriorityBreakdown counts tasks per priority.
type PriorityBreakdown struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// TaskStatistics summarizes a user's tasks.
type TaskStatistics struct {
	TotalTasks      int               `json:"total_tasks"`
	CompletedTasks  int               `json:"completed_tasks"`
	PendingTasks    int               `json:"pending_tasks"`
	InProgressTasks int               `json:"in_progress_tasks"`
	CancelledTasks  int               `json:"cancelled_tasks"`
	OverdueTasks    int               `json:"overdue_tasks"`
	ByPriority      PriorityBreakdown `json:"by_priority"`
	CompletionRate  decimal.Decimal   `json:"completion_rate"`
}

// TaskService exposes task domain operations. Ownership rules live here:
// non-admins only ever see or mutate their own tasks.
type TaskService interface {
	Create(ctx context.Context, userID uint, in TaskCreateInput) (*model.Task, error)
	Get(ctx context.Context, taskID uint, caller *model.User) (*model.Task, error)
	List(ctx context.Context, caller *model.User, filters map[string]string, p query.Pagination, sortBy, sortOrder string) ([]model.Task, *query.Meta, error)
	Update(ctx context.Context, taskID uint, caller *model.User, in TaskUpdateInput) (*model.Task, error)
	Delete(ctx context.Context, taskID uint, caller *model.User) error
	Complete(ctx context.Context, taskID uint, caller *model.User) (*model.Task, error)
	AddTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (*model.Task, error)
	RemoveTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (*model.Task, error)
	HasTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (bool, error)
	Statistics(ctx context.Context, userID uint) (*TaskStatistics, error)
	ListForExport(ctx context.Context, caller *model.User, filters map[string]string) ([]model.Task, error)
}

type taskService struct {
	taskRepo repository.TaskRepository
	tagRepo  repository.TagRepository
	userRepo repository.UserRepository
	cache    *cache.Client
	log      *logrus.Logger
}

// NewTaskService builds a TaskService.
func NewTaskService(taskRepo repository.TaskRepository, tagRepo repository.TagRepository, userRepo repository.UserRepository, cache *cache.Client, log *logrus.Logger) TaskService {
	return &taskService{
		taskRepo: taskRepo,
		tagRepo:  tagRepo,
		userRepo: userRepo,
		cache:    cache,
		log:      log,
	}
}

func (s *taskService) Create(ctx context.Context, userID uint, in TaskCreateInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if msg := validate.StringLength(title, 1, 200, "title"); msg != "" {
		return nil, apperrors.NewValidation(msg)
	}

	description := strings.TrimSpace(in.Description)
	if description != "" {
		if msg := validate.StringLength(description, 0, 5000, "description"); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
	}

	status := model.TaskStatusPending
	if in.Status != "" {
		status = model.TaskStatus(in.Status)
		if !status.Valid() {
			return nil, apperrors.NewValidation(enumMessage("status", statusValues()))
		}
	}

	priority := model.TaskPriorityMedium
	if in.Priority != "" {
		priority = model.TaskPriority(in.Priority)
		if !priority.Valid() {
			return nil, apperrors.NewValidation(enumMessage("priority", priorityValues()))
		}
	}

	var dueDate *time.Time
	if in.DueDate != "" {
		parsed, ok := validate.ParseDate(in.DueDate)
		if !ok {
			return nil, apperrors.NewValidation("invalid date format, use ISO format (e.g. 2024-01-15T10:30:00)")
		}
		dueDate = &parsed
	}

	task := &model.Task{
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		UserID:      userID,
	}
	if task.Status == model.TaskStatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(ctx, task, in.TagIDs); err != nil {
		s.log.WithError(err).Error("failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.invalidateStats(ctx, userID)
	return task, nil
}

func (s *taskService) Get(ctx context.Context, taskID uint, caller *model.User) (*model.Task, error) {
	return s.authorize(ctx, taskID, caller)
}

func (s *taskService) List(ctx context.Context, caller *model.User, filters map[string]string, p query.Pagination, sortBy, sortOrder string) ([]model.Task, *query.Meta, error) {
	f := s.buildFilters(caller, filters)
	tasks, meta, err := s.taskRepo.List(ctx, f, p, sortBy, sortOrder)
	if err != nil {
		s.log.WithError(err).Error("failed to list tasks")
		return nil, nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, meta, nil
}

func (s *taskService) Update(ctx context.Context, taskID uint, caller *model.User, in TaskUpdateInput) (*model.Task, error) {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if msg := validate.StringLength(title, 1, 200, "title"); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
		task.Title = title
	}

	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description != "" {
			if msg := validate.StringLength(description, 0, 5000, "description"); msg != "" {
				return nil, apperrors.NewValidation(msg)
			}
		}
		task.Description = description
	}

	if in.Status != nil {
		status := model.TaskStatus(*in.Status)
		if !status.Valid() {
			return nil, apperrors.NewValidation(enumMessage("status", statusValues()))
		}
		task.Status = status

		// completed_at tracks the completed state, set on entry and cleared
		// on exit
		if status == model.TaskStatusCompleted && task.CompletedAt == nil {
			now := time.Now().UTC()
			task.CompletedAt = &now
		} else if status != model.TaskStatusCompleted {
			task.CompletedAt = nil
		}
	}

	if in.Priority != nil {
		priority := model.TaskPriority(*in.Priority)
		if !priority.Valid() {
			return nil, apperrors.NewValidation(enumMessage("priority", priorityValues()))
		}
		task.Priority = priority
	}

	if in.DueDate != nil {
		if *in.DueDate == "" {
			task.DueDate = nil
		} else {
			parsed, ok := validate.ParseDate(*in.DueDate)
			if !ok {
				return nil, apperrors.NewValidation("invalid date format, use ISO format (e.g. 2024-01-15T10:30:00)")
			}
			task.DueDate = &parsed
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		s.log.WithError(err).Error("failed to update task")
		return nil, fmt.Errorf("update task: %w", err)
	}

	if in.TagIDs != nil {
		if err := s.taskRepo.ReplaceTags(ctx, task.ID, *in.TagIDs); err != nil {
			s.log.WithError(err).Error("failed to replace task tags")
			return nil, fmt.Errorf("replace task tags: %w", err)
		}
	}

	updated, err := s.taskRepo.FindByID(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}

	s.invalidateStats(ctx, task.UserID)
	return updated, nil
}

func (s *taskService) Delete(ctx context.Context, taskID uint, caller *model.User) error {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task); err != nil {
		s.log.WithError(err).Error("failed to delete task")
		return fmt.Errorf("delete task: %w", err)
	}

	s.invalidateStats(ctx, task.UserID)
	return nil
}

func (s *taskService) Complete(ctx context.Context, taskID uint, caller *model.User) (*model.Task, error) {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return nil, err
	}

	task.Status = model.TaskStatusCompleted
	now := time.Now().UTC()
	task.CompletedAt = &now

	if err := s.taskRepo.Update(ctx, task); err != nil {
		s.log.WithError(err).Error("failed to complete task")
		return nil, fmt.Errorf("complete task: %w", err)
	}

	s.invalidateStats(ctx, task.UserID)
	return task, nil
}

func (s *taskService) AddTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (*model.Task, error) {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return nil, err
	}

	if _, err := s.tagRepo.FindByID(ctx, tagID); err != nil {
		return nil, apperrors.ErrTagNotFound
	}

	if err := s.taskRepo.AddTag(ctx, task.ID, tagID); err != nil {
		s.log.WithError(err).Error("failed to add tag to task")
		return nil, fmt.Errorf("add tag: %w", err)
	}

	return s.taskRepo.FindByID(ctx, task.ID)
}

func (s *taskService) RemoveTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (*model.Task, error) {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.RemoveTag(ctx, task.ID, tagID); err != nil {
		s.log.WithError(err).Error("failed to remove tag from task")
		return nil, fmt.Errorf("remove tag: %w", err)
	}

	return s.taskRepo.FindByID(ctx, task.ID)
}

func (s *taskService) HasTag(ctx context.Context, taskID uint, caller *model.User, tagID uint) (bool, error) {
	task, err := s.authorize(ctx, taskID, caller)
	if err != nil {
		return false, err
	}
	return s.taskRepo.HasTag(ctx, task.ID, tagID)
}

// Statistics aggregates the user's tasks by status and priority. Results are
// cached briefly and invalidated on every task mutation.
func (s *taskService) Statistics(ctx context.Context, userID uint) (*TaskStatistics, error) {
	key := statsCacheKey(userID)
	var cached TaskStatistics
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load tasks for statistics")
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	stats := &TaskStatistics{TotalTasks: len(tasks)}
	for i := range tasks {
		t := &tasks[i]
		switch t.Status {
		case model.TaskStatusCompleted:
			stats.CompletedTasks++
		case model.TaskStatusPending:
			stats.PendingTasks++
		case model.TaskStatusInProgress:
			stats.InProgressTasks++
		case model.TaskStatusCancelled:
			stats.CancelledTasks++
		}
		if t.IsOverdue() {
			stats.OverdueTasks++
		}
		switch t.Priority {
		case model.TaskPriorityLow:
			stats.ByPriority.Low++
		case model.TaskPriorityMedium:
			stats.ByPriority.Medium++
		case model.TaskPriorityHigh:
			stats.ByPriority.High++
		case model.TaskPriorityUrgent:
			stats.ByPriority.Urgent++
		}
	}

	if stats.TotalTasks > 0 {
		stats.CompletionRate = decimal.NewFromInt(int64(stats.CompletedTasks)).
			Div(decimal.NewFromInt(int64(stats.TotalTasks))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	} else {
		stats.CompletionRate = decimal.Zero
	}

	s.cache.SetJSON(ctx, key, stats, statsCacheTTL)
	return stats, nil
}

// ListForExport returns every matching task without pagination.
func (s *taskService) ListForExport(ctx context.Context, caller *model.User, filters map[string]string) ([]model.Task, error) {
	f := s.buildFilters(caller, filters)
	tasks, _, err := s.taskRepo.List(ctx, f, query.Pagination{Page: 1, PerPage: 10000}, "created_at", "desc")
	if err != nil {
		s.log.WithError(err).Error("failed to list tasks for export")
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// authorize loads the task and enforces the owner-or-admin rule.
func (s *taskService) authorize(ctx context.Context, taskID uint, caller *model.User) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}

	if !caller.IsAdmin() && task.UserID != caller.ID {
		return nil, apperrors.ErrForbidden
	}

	return task, nil
}

// buildFilters interprets the allow-listed raw params into typed predicates.
// Unparseable values are dropped, matching the engine's permissiveness.
func (s *taskService) buildFilters(caller *model.User, filters map[string]string) repository.TaskFilters {
	f := repository.TaskFilters{
		Status:   filters["status"],
		Priority: filters["priority"],
		TagName:  filters["tag_name"],
		Search:   filters["search"],
	}

	if !caller.IsAdmin() {
		f.OwnerID = caller.ID
	} else if raw, ok := filters["user_id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			f.FilterUserID = uint(id)
		}
	}

	if raw, ok := filters["tag_id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			f.TagID = uint(id)
		}
	}

	if raw, ok := filters["overdue"]; ok && strings.EqualFold(raw, "true") {
		f.Overdue = true
	}

	if raw, ok := filters["due_date_from"]; ok {
		if t, parsed := validate.ParseDate(raw); parsed {
			f.DueDateFrom = &t
		}
	}
	if raw, ok := filters["due_date_to"]; ok {
		if t, parsed := validate.ParseDate(raw); parsed {
			f.DueDateTo = &t
		}
	}

	return f
}

func (s *taskService) invalidateStats(ctx context.Context, userID uint) {
	_ = s.cache.Delete(ctx, statsCacheKey(userID))
}

func statsCacheKey(userID uint) string {
	return fmt.Sprintf("task_stats:%d", userID)
}

func statusValues() []string {
	out := make([]string, len(model.TaskStatuses))
	for i, v := range model.TaskStatuses {
		out[i] = string(v)
	}
	return out
}

func priorityValues() []string {
	out := make([]string, len(model.TaskPriorities))
	for i, v := range model.TaskPriorities {
		out[i] = string(v)
	}
	return out
}

func enumMessage(field string, values []string) string {
	return field + " must be one of: " + strings.Join(values, ", ")
}
