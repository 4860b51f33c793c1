package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"taskforge/internal/config"
	"taskforge/internal/export"
	"taskforge/internal/middleware"
	"taskforge/internal/query"
	"taskforge/internal/response"
	"taskforge/internal/service"
)

// Allow-lists for the query engine. Anything outside them is silently
// substituted or dropped.
var (
	taskSortFields   = []string{"id", "title", "status", "priority", "due_date", "created_at", "updated_at"}
	taskFilterFields = []string{"status", "priority", "user_id", "tag_id", "tag_name", "search", "overdue", "due_date_from", "due_date_to"}
	exportFilters    = []string{"status", "priority", "tag_id", "overdue"}
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService service.TaskService
	cfg         *config.Config
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService, cfg *config.Config) *TaskHandler {
	return &TaskHandler{taskService: taskService, cfg: cfg}
}

// TaskCreateRequest represents a task creation request.
type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	Tags        []uint `json:"tags"`
}

// TaskUpdateRequest represents a partial task update; absent fields are
// left untouched.
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Tags        *[]uint `json:"tags"`
}

// ListPayload wraps one page of items with its pagination metadata.
type ListPayload struct {
	Items      interface{} `json:"items"`
	Pagination *query.Meta `json:"pagination"`
}

// List godoc
// @Summary List tasks with filtering, sorting and pagination
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page"
// @Param sort_by query string false "Sort field"
// @Param sort_order query string false "asc or desc"
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param tag_id query int false "Filter by tag id"
// @Param tag_name query string false "Filter by tag name"
// @Param search query string false "Search title and description"
// @Param overdue query bool false "Only overdue tasks"
// @Param due_date_from query string false "Due date lower bound (ISO)"
// @Param due_date_to query string false "Due date upper bound (ISO)"
// @Param user_id query int false "Owner filter (admin only)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)

	p := query.ParsePagination(c.QueryParam("page"), c.QueryParam("per_page"), h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	sortBy, sortOrder := query.ParseSort(c.QueryParam("sort_by"), c.QueryParam("sort_order"), taskSortFields)
	filters := query.ParseFilters(c.QueryParams(), taskFilterFields)

	tasks, meta, err := h.taskService.List(c.Request().Context(), user, filters, p, sortBy, sortOrder)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, ListPayload{Items: tasks, Pagination: meta}, "")
}

// Get godoc
// @Summary Get a single task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}

	task, err := h.taskService.Get(c.Request().Context(), id, middleware.CurrentUser(c))
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, task, "")
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TaskCreateRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}

	user := middleware.CurrentUser(c)
	task, err := h.taskService.Create(c.Request().Context(), user.ID, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		TagIDs:      req.Tags,
	})
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusCreated, task, "task created successfully")
}

// Update godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body TaskUpdateRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}

	var req TaskUpdateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	task, err := h.taskService.Update(c.Request().Context(), id, middleware.CurrentUser(c), service.TaskUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		TagIDs:      req.Tags,
	})
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, task, "task updated successfully")
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}

	if err := h.taskService.Delete(c.Request().Context(), id, middleware.CurrentUser(c)); err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "task deleted successfully")
}

// Complete godoc
// @Summary Mark a task completed
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}

	task, err := h.taskService.Complete(c.Request().Context(), id, middleware.CurrentUser(c))
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, task, "task marked as completed")
}

// AddTag godoc
// @Summary Attach a tag to a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param tag_id path int true "Tag ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id}/tags/{tag_id} [post]
func (h *TaskHandler) AddTag(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}
	tagID, ok := pathID(c, "tag_id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tag id")
	}

	task, err := h.taskService.AddTag(c.Request().Context(), id, middleware.CurrentUser(c), tagID)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, task, "tag added to task")
}

// RemoveTag godoc
// @Summary Detach a tag from a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param tag_id path int true "Tag ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id}/tags/{tag_id} [delete]
func (h *TaskHandler) RemoveTag(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid task id")
	}
	tagID, ok := pathID(c, "tag_id")
	if !ok {
		return response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tag id")
	}

	task, err := h.taskService.RemoveTag(c.Request().Context(), id, middleware.CurrentUser(c), tagID)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, task, "tag removed from task")
}

// Statistics godoc
// @Summary Task statistics for the current user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/statistics [get]
func (h *TaskHandler) Statistics(c echo.Context) error {
	user := middleware.CurrentUser(c)

	stats, err := h.taskService.Statistics(c.Request().Context(), user.ID)
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, http.StatusOK, stats, "")
}

// Export godoc
// @Summary Export tasks as CSV or JSON
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv or json" default(csv)
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param tag_id query int false "Filter by tag id"
// @Param overdue query bool false "Only overdue tasks"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /tasks/export [get]
func (h *TaskHandler) Export(c echo.Context) error {
	user := middleware.CurrentUser(c)

	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "csv"
	}

	filters := query.ParseFilters(c.QueryParams(), exportFilters)

	tasks, err := h.taskService.ListForExport(c.Request().Context(), user, filters)
	if err != nil {
		return fail(c, err)
	}
	if len(tasks) == 0 {
		return response.Error(c, http.StatusNotFound, "NOT_FOUND", "no tasks to export")
	}

	rows := export.FlattenTasks(tasks)

	if format == "json" {
		body, err := export.TasksToJSON(rows)
		if err != nil {
			return fail(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=tasks.json`)
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
	}

	body, err := export.TasksToCSV(rows)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=tasks.csv`)
	return c.Blob(http.StatusOK, "text/csv", body)
}
