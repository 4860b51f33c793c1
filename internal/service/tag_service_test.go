package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
)

func TestTagService_Create(t *testing.T) {
	tests := []struct {
		name          string
		input         TagCreateInput
		setupMock     func(*MockTagRepository)
		expectedError error
		expectedColor string
	}{
		{
			name:  "default color applied",
			input: TagCreateInput{Name: "work"},
			setupMock: func(m *MockTagRepository) {
				m.On("FindByName", mock.Anything, "work").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(nil)
			},
			expectedColor: model.DefaultTagColor,
		},
		{
			name:  "explicit color kept",
			input: TagCreateInput{Name: "urgent", Color: "#FF0000"},
			setupMock: func(m *MockTagRepository) {
				m.On("FindByName", mock.Anything, "urgent").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(nil)
			},
			expectedColor: "#FF0000",
		},
		{
			name:          "invalid color rejected",
			input:         TagCreateInput{Name: "bad", Color: "red"},
			setupMock:     func(m *MockTagRepository) {},
			expectedError: apperrors.NewValidation("color must be a valid hex code (e.g. #FF0000)"),
		},
		{
			name:          "empty name rejected",
			input:         TagCreateInput{Name: "  "},
			setupMock:     func(m *MockTagRepository) {},
			expectedError: apperrors.NewValidation("name must be at least 1 characters"),
		},
		{
			name:  "duplicate name rejected",
			input: TagCreateInput{Name: "work"},
			setupMock: func(m *MockTagRepository) {
				m.On("FindByName", mock.Anything, "work").Return(&model.Tag{ID: 1, Name: "work"}, nil)
			},
			expectedError: apperrors.ErrTagExists,
		},
		{
			name:  "concurrent duplicate surfaces as conflict",
			input: TagCreateInput{Name: "work"},
			setupMock: func(m *MockTagRepository) {
				m.On("FindByName", mock.Anything, "work").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrTagExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTags := new(MockTagRepository)
			tt.setupMock(mockTags)

			service := NewTagService(mockTags, newTestLogger())
			tag, err := service.Create(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, tag)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedColor, tag.Color)
			}

			mockTags.AssertExpectations(t)
		})
	}
}

func TestTagService_Update(t *testing.T) {
	t.Run("rename to existing name rejected", func(t *testing.T) {
		name := "work"
		mockTags := new(MockTagRepository)
		mockTags.On("FindByID", mock.Anything, uint(2)).Return(&model.Tag{ID: 2, Name: "home"}, nil)
		mockTags.On("FindByName", mock.Anything, "work").Return(&model.Tag{ID: 1, Name: "work"}, nil)

		service := NewTagService(mockTags, newTestLogger())
		_, err := service.Update(context.Background(), 2, TagUpdateInput{Name: &name})

		assert.Equal(t, apperrors.ErrTagExists, err)
	})

	t.Run("rename to own name allowed", func(t *testing.T) {
		name := "work"
		mockTags := new(MockTagRepository)
		mockTags.On("FindByID", mock.Anything, uint(1)).Return(&model.Tag{ID: 1, Name: "work"}, nil)
		mockTags.On("FindByName", mock.Anything, "work").Return(&model.Tag{ID: 1, Name: "work"}, nil)
		mockTags.On("Update", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(nil)

		service := NewTagService(mockTags, newTestLogger())
		tag, err := service.Update(context.Background(), 1, TagUpdateInput{Name: &name})

		assert.NoError(t, err)
		assert.Equal(t, "work", tag.Name)
	})

	t.Run("unknown tag yields not found", func(t *testing.T) {
		mockTags := new(MockTagRepository)
		mockTags.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		service := NewTagService(mockTags, newTestLogger())
		_, err := service.Update(context.Background(), 9, TagUpdateInput{})

		assert.Equal(t, apperrors.ErrTagNotFound, err)
	})
}

func TestTagService_Delete(t *testing.T) {
	t.Run("existing tag deleted", func(t *testing.T) {
		tag := &model.Tag{ID: 1, Name: "work"}
		mockTags := new(MockTagRepository)
		mockTags.On("FindByID", mock.Anything, uint(1)).Return(tag, nil)
		mockTags.On("Delete", mock.Anything, tag).Return(nil)

		service := NewTagService(mockTags, newTestLogger())

		assert.NoError(t, service.Delete(context.Background(), 1))
		mockTags.AssertExpectations(t)
	})

	t.Run("unknown tag yields not found", func(t *testing.T) {
		mockTags := new(MockTagRepository)
		mockTags.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		service := NewTagService(mockTags, newTestLogger())

		assert.Equal(t, apperrors.ErrTagNotFound, service.Delete(context.Background(), 9))
	})
}
