package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskforge/internal/model"
	"taskforge/internal/query"
)

// TaskFilters is the structured filter set produced by the query engine and
// interpreted here into predicates.
type TaskFilters struct {
	// OwnerID scopes the whole query to one owner; zero means unscoped (admin).
	OwnerID uint

	Status   string
	Priority string
	// FilterUserID narrows an unscoped (admin) listing to one user.
	FilterUserID uint
	TagID        uint
	TagName      string
	Search       string
	Overdue      bool
	DueDateFrom  *time.Time
	DueDateTo    *time.Time
}

// TaskRepository defines persistence operations for tasks and their tag set.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task, tagIDs []uint) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context, f TaskFilters, p query.Pagination, sortBy, sortOrder string) ([]model.Task, *query.Meta, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Task, error)
	ReplaceTags(ctx context.Context, taskID uint, tagIDs []uint) error
	AddTag(ctx context.Context, taskID, tagID uint) error
	RemoveTag(ctx context.Context, taskID, tagID uint) error
	HasTag(ctx context.Context, taskID, tagID uint) (bool, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository builds a GORM-backed repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create persists the task and its initial tag associations in one transaction.
// Unknown tag ids are ignored rather than rejected.
func (r *taskRepository) Create(ctx context.Context, task *model.Task, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags").Create(task).Error; err != nil {
			return err
		}
		if err := insertTagRows(tx, task.ID, tagIDs); err != nil {
			return err
		}
		return tx.Preload("Tags").First(task, task.ID).Error
	})
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Tags").Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&model.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
}

func (r *taskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Tags").First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, f TaskFilters, p query.Pagination, sortBy, sortOrder string) ([]model.Task, *query.Meta, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{})

	if f.OwnerID != 0 {
		q = q.Where("tasks.user_id = ?", f.OwnerID)
	} else if f.FilterUserID != 0 {
		q = q.Where("tasks.user_id = ?", f.FilterUserID)
	}

	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tasks.priority = ?", f.Priority)
	}
	if f.TagID != 0 || f.TagName != "" {
		q = q.Joins("JOIN task_tags ON task_tags.task_id = tasks.id")
	}
	if f.TagID != 0 {
		q = q.Where("task_tags.tag_id = ?", f.TagID)
	}
	if f.TagName != "" {
		q = q.Joins("JOIN tags ON tags.id = task_tags.tag_id").
			Where("tags.name LIKE ?", "%"+f.TagName+"%")
	}
	if f.Overdue {
		q = q.Where("tasks.due_date < ? AND tasks.status <> ?", time.Now().UTC(), model.TaskStatusCompleted)
	}
	if f.DueDateFrom != nil {
		q = q.Where("tasks.due_date >= ?", *f.DueDateFrom)
	}
	if f.DueDateTo != nil {
		q = q.Where("tasks.due_date <= ?", *f.DueDateTo)
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		q = q.Where("tasks.title LIKE ? OR tasks.description LIKE ?", term, term)
	}

	q = query.ApplySort(q, "tasks."+sortBy, sortOrder).Preload("Tags").Preload("User")

	// tag joins can fan out rows, so both the count and the page deduplicate
	var tasks []model.Task
	meta, err := query.PaginateDistinct(q, p, "tasks.id", "tasks.*", &tasks)
	if err != nil {
		return nil, nil, err
	}
	return tasks, meta, nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReplaceTags swaps the full tag set: delete-all-then-add, not diffed. The
// association created_at resets even when the set is unchanged; callers rely
// on that observable behavior.
func (r *taskRepository) ReplaceTags(ctx context.Context, taskID uint, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.TaskTag{}).Error; err != nil {
			return err
		}
		return insertTagRows(tx, taskID, tagIDs)
	})
}

func (r *taskRepository) AddTag(ctx context.Context, taskID, tagID uint) error {
	row := model.TaskTag{TaskID: taskID, TagID: tagID}
	return r.db.WithContext(ctx).FirstOrCreate(&row, model.TaskTag{TaskID: taskID, TagID: tagID}).Error
}

func (r *taskRepository) RemoveTag(ctx context.Context, taskID, tagID uint) error {
	return r.db.WithContext(ctx).
		Where("task_id = ? AND tag_id = ?", taskID, tagID).
		Delete(&model.TaskTag{}).Error
}

func (r *taskRepository) HasTag(ctx context.Context, taskID, tagID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TaskTag{}).
		Where("task_id = ? AND tag_id = ?", taskID, tagID).
		Count(&count).Error
	return count > 0, err
}

// insertTagRows creates join rows for tag ids that actually exist.
func insertTagRows(tx *gorm.DB, taskID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	var tags []model.Tag
	if err := tx.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return err
	}
	for _, tag := range tags {
		if err := tx.Create(&model.TaskTag{TaskID: taskID, TagID: tag.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}
