package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/api/dto"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// TaskManager is the task workflow used by the handlers.
type TaskManager interface {
	Now() time.Time
	List(ctx context.Context, userID string) ([]domain.Task, error)
	Create(ctx context.Context, userID string, input service.TaskCreateInput) (*domain.Task, []domain.Task, error)
	UpdateDescription(ctx context.Context, userID, taskID, description string) (*domain.Task, error)
	UpdateDeadline(ctx context.Context, userID, taskID, raw string) (*domain.Task, error)
	Toggle(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

// TasksHandler serves the task list and its mutations.
type TasksHandler struct {
	tasks  TaskManager
	format display.Formatter
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks TaskManager, format display.Formatter) *TasksHandler {
	return &TasksHandler{tasks: tasks, format: format}
}

// List GET /.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	now := h.tasks.Now()
	tasks, err := h.tasks.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"tasks":   dto.NewTaskViews(tasks, now, h.format),
		"today":   h.format.Day(now),
		"now":     h.format.FormValue(now),
	})
}

// Add POST /add.
func (h *TasksHandler) Add(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.AddTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	_, tasks, err := h.tasks.Create(c.UserContext(), userID, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return err
	}

	now := h.tasks.Now()
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Task added successfully!",
		"tasks":   dto.NewTaskViews(tasks, now, h.format),
		"today":   h.format.Day(now),
	})
}

// UpdateDescription POST /update_description/:id.
func (h *TasksHandler) UpdateDescription(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	task, err := h.tasks.UpdateDescription(c.UserContext(), userID, c.Params("id"), req.NewDescription)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"message":         "Description updated.",
		"new_description": task.Description,
	})
}

// UpdateDeadline POST /update_deadline/:id.
func (h *TasksHandler) UpdateDeadline(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	task, err := h.tasks.UpdateDeadline(c.UserContext(), userID, c.Params("id"), req.NewDeadline)
	if err != nil {
		return err
	}
	if task.Deadline == nil {
		return c.JSON(fiber.Map{"success": true, "message": "Deadline removed."})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Deadline updated.",
		"deadline_time": h.format.Time(*task.Deadline),
		"deadline_date": h.format.Date(*task.Deadline),
	})
}

// Toggle POST /toggle/:id.
func (h *TasksHandler) Toggle(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Toggle(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Status updated",
		"new_status": task.Status,
	})
}

// Delete POST /delete/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Task deleted"})
}

// Clear POST /clear.
func (h *TasksHandler) Clear(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	deleted, err := h.tasks.Clear(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "All tasks have been cleared.",
		"deleted": deleted,
	})
}

func currentUserID(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return "", apperrors.NewUnauthorized("User not logged in.")
	}
	return principal.User.ID, nil
}
