package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskforge/internal/config"
	"taskforge/internal/query"
	"taskforge/internal/response"
	"taskforge/internal/service"
)

var tagSortFields = []string{"id", "name", "created_at", "updated_at"}

// TagHandler handles tag endpoints.
type TagHandler struct {
	tagService service.TagService
	cfg        *config.Config
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(tagService service.TagService, cfg *config.Config) *TagHandler {
	return &TagHandler{tagService: tagService, cfg: cfg}
}

// TagCreateRequest represents a tag creation request.
type TagCreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Color       string `json:"color" validate:"omitempty,tagcolor"`
	Description string `json:"description" validate:"max=255"`
}

// TagUpdateRequest represents a partial tag update.
type TagUpdateRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

// List godoc
// @Summary List tags
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page"
// @Param sort_by query string false "Sort field"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /tags [get]
func (h *TagHandler) List(c echo.Context) error {
	p := query.ParsePagination(c.QueryParam("page"), c.QueryParam("per_page"), h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	sortBy, sortOrder := query.ParseSort(c.QueryParam("sort_by"), c.QueryParam("sort_order"), tagSortFields)

	tags, meta, err := h.tagService.List(c.Request().Context(), p, sortBy, sortOrder)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, ListPayload{Items: tags, Pagination: meta}, "")
}

// Get godoc
// @Summary Get a single tag with its task count
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tags/{id} [get]
func (h *TagHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tag id")
	}

	tag, err := h.tagService.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, tag, "")
}

// Create godoc
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TagCreateRequest true "Tag payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tags [post]
func (h *TagHandler) Create(c echo.Context) error {
	var req TagCreateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}

	tag, err := h.tagService.Create(c.Request().Context(), service.TagCreateInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusCreated, tag, "tag created successfully")
}

// Update godoc
// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Param request body TagUpdateRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tags/{id} [put]
func (h *TagHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tag id")
	}

	var req TagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	tag, err := h.tagService.Update(c.Request().Context(), id, service.TagUpdateInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, tag, "tag updated successfully")
}

// Delete godoc
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tags/{id} [delete]
func (h *TagHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tag id")
	}

	if err := h.tagService.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "tag deleted successfully")
}
