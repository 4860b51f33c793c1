package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/query"
	"taskforge/internal/repository"
	"taskforge/internal/validate"
)

// TagCreateInput carries the fields accepted when creating a tag.
type TagCreateInput struct {
	Name        string
	Color       string
	Description string
}

// TagUpdateInput carries partial updates; nil fields are left untouched.
type TagUpdateInput struct {
	Name        *string
	Color       *string
	Description *string
}

// TagService exposes tag domain operations. Reads are open to any
// authenticated user; writes other than create are admin-gated at the router.
type TagService interface {
	Create(ctx context.Context, in TagCreateInput) (*model.Tag, error)
	Get(ctx context.Context, tagID uint) (*model.Tag, error)
	List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.Tag, *query.Meta, error)
	Update(ctx context.Context, tagID uint, in TagUpdateInput) (*model.Tag, error)
	Delete(ctx context.Context, tagID uint) error
}

type tagService struct {
	tagRepo repository.TagRepository
	log     *logrus.Logger
}

// NewTagService builds a TagService.
func NewTagService(tagRepo repository.TagRepository, log *logrus.Logger) TagService {
	return &tagService{tagRepo: tagRepo, log: log}
}

func (s *tagService) Create(ctx context.Context, in TagCreateInput) (*model.Tag, error) {
	name := strings.TrimSpace(in.Name)
	if msg := validate.StringLength(name, 1, 50, "name"); msg != "" {
		return nil, apperrors.NewValidation(msg)
	}

	color := in.Color
	if color == "" {
		color = model.DefaultTagColor
	}
	if msg := validate.Color(color); msg != "" {
		return nil, apperrors.NewValidation(msg)
	}

	// Name uniqueness is checked here exactly, then enforced again by the
	// unique index in case a concurrent create wins the race.
	if _, err := s.tagRepo.FindByName(ctx, name); err == nil {
		return nil, apperrors.ErrTagExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check tag name: %w", err)
	}

	tag := &model.Tag{
		Name:        name,
		Color:       color,
		Description: strings.TrimSpace(in.Description),
	}

	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrTagExists
		}
		s.log.WithError(err).Error("failed to create tag")
		return nil, fmt.Errorf("create tag: %w", err)
	}

	return tag, nil
}

func (s *tagService) Get(ctx context.Context, tagID uint) (*model.Tag, error) {
	tag, err := s.tagRepo.FindByID(ctx, tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTagNotFound
		}
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return tag, nil
}

func (s *tagService) List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.Tag, *query.Meta, error) {
	tags, meta, err := s.tagRepo.List(ctx, p, sortBy, sortOrder)
	if err != nil {
		s.log.WithError(err).Error("failed to list tags")
		return nil, nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, meta, nil
}

func (s *tagService) Update(ctx context.Context, tagID uint, in TagUpdateInput) (*model.Tag, error) {
	tag, err := s.Get(ctx, tagID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if msg := validate.StringLength(name, 1, 50, "name"); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
		existing, err := s.tagRepo.FindByName(ctx, name)
		if err == nil && existing.ID != tagID {
			return nil, apperrors.ErrTagExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check tag name: %w", err)
		}
		tag.Name = name
	}

	if in.Color != nil {
		if msg := validate.Color(*in.Color); msg != "" {
			return nil, apperrors.NewValidation(msg)
		}
		tag.Color = *in.Color
	}

	if in.Description != nil {
		tag.Description = strings.TrimSpace(*in.Description)
	}

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrTagExists
		}
		s.log.WithError(err).Error("failed to update tag")
		return nil, fmt.Errorf("update tag: %w", err)
	}

	return tag, nil
}

func (s *tagService) Delete(ctx context.Context, tagID uint) error {
	tag, err := s.Get(ctx, tagID)
	if err != nil {
		return err
	}

	if err := s.tagRepo.Delete(ctx, tag); err != nil {
		s.log.WithError(err).Error("failed to delete tag")
		return fmt.Errorf("delete tag: %w", err)
	}

	return nil
}
