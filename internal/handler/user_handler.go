package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskforge/internal/config"
	"taskforge/internal/middleware"
	"taskforge/internal/query"
	"taskforge/internal/response"
	"taskforge/internal/service"
)

var userSortFields = []string{"id", "username", "email", "created_at", "updated_at"}

// UserHandler handles user management endpoints.
type UserHandler struct {
	userService service.UserService
	cfg         *config.Config
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{userService: userService, cfg: cfg}
}

// UserUpdateRequest represents a partial user update. Role and is_active
// are honored only when the caller is an admin.
type UserUpdateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	Role      *string `json:"role"`
}

// List godoc
// @Summary List users (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page"
// @Param sort_by query string false "Sort field"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	p := query.ParsePagination(c.QueryParam("page"), c.QueryParam("per_page"), h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	sortBy, sortOrder := query.ParseSort(c.QueryParam("sort_by"), c.QueryParam("sort_order"), userSortFields)

	users, meta, err := h.userService.List(c.Request().Context(), p, sortBy, sortOrder)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, ListPayload{Items: users, Pagination: meta}, "")
}

// Get godoc
// @Summary Get a user (owner or admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
	}

	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, user, "")
}

// Update godoc
// @Summary Update a user (owner or admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UserUpdateRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	in := service.UserUpdateInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if caller := middleware.CurrentUser(c); caller != nil && caller.IsAdmin() {
		in.IsActive = req.IsActive
		in.Role = req.Role
	}

	user, err := h.userService.Update(c.Request().Context(), id, in)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, user, "user updated successfully")
}

// Delete godoc
// @Summary Delete a user and all their data (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
	}

	if err := h.userService.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "user deleted successfully")
}

// Activate godoc
// @Summary Activate a user account (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/activate [post]
func (h *UserHandler) Activate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
	}

	user, err := h.userService.Activate(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, user, "user activated")
}

// Deactivate godoc
// @Summary Deactivate a user account (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
	}

	user, err := h.userService.Deactivate(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, user, "user deactivated")
}
