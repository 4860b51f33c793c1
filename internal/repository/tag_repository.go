package repository

import (
	"context"

	"gorm.io/gorm"

	"taskforge/internal/model"
	"taskforge/internal/query"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	Update(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, tag *model.Tag) error
	FindByID(ctx context.Context, id uint) (*model.Tag, error)
	FindByName(ctx context.Context, name string) (*model.Tag, error)
	List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.Tag, *query.Meta, error)
	CountTasks(ctx context.Context, tagID uint) (int64, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository builds a GORM-backed repository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *tagRepository) Update(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// Delete also clears the tag's join rows so no dangling associations remain.
func (r *tagRepository) Delete(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&model.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
}

func (r *tagRepository) FindByID(ctx context.Context, id uint) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, err
	}
	if err := r.fillTaskCount(ctx, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByName matches the name exactly, case sensitivity depending on the
// column collation, matching write-time uniqueness checks.
func (r *tagRepository) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.Tag, *query.Meta, error) {
	var tags []model.Tag
	q := query.ApplySort(r.db.WithContext(ctx).Model(&model.Tag{}), sortBy, sortOrder)
	meta, err := query.Paginate(q, p, &tags)
	if err != nil {
		return nil, nil, err
	}
	for i := range tags {
		if err := r.fillTaskCount(ctx, &tags[i]); err != nil {
			return nil, nil, err
		}
	}
	return tags, meta, nil
}

func (r *tagRepository) CountTasks(ctx context.Context, tagID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TaskTag{}).
		Where("tag_id = ?", tagID).
		Count(&count).Error
	return count, err
}

func (r *tagRepository) fillTaskCount(ctx context.Context, tag *model.Tag) error {
	count, err := r.CountTasks(ctx, tag.ID)
	if err != nil {
		return err
	}
	tag.TaskCount = count
	return nil
}
