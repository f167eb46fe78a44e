package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// Reminders runs reminder scans and ad hoc reminders.
type Reminders interface {
	Scan(ctx context.Context) (service.ScanReport, error)
	SendNow(ctx context.Context, userID, taskID string) error
}

// RemindersHandler exposes the reminder triggers.
type RemindersHandler struct {
	reminders Reminders
}

// NewRemindersHandler constructs handler.
func NewRemindersHandler(reminders Reminders) *RemindersHandler {
	return &RemindersHandler{reminders: reminders}
}

// Run GET /run-reminders. A scan cut short still reports what it sent, so
// the caller can tell which reminders went out.
func (h *RemindersHandler) Run(c *fiber.Ctx) error {
	report, err := h.reminders.Scan(c.UserContext())
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		details := make(map[string]any, len(domainErr.Details)+1)
		for k, v := range domainErr.Details {
			details[k] = v
		}
		details["report"] = report
		return &apperrors.DomainError{
			Code:       domainErr.Code,
			Message:    "Reminder scan interrupted.",
			HTTPStatus: domainErr.HTTPStatus,
			Details:    details,
			Err:        err,
		}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Reminders processed.",
		"report":  report,
	})
}

// SendNow POST /remind/:id.
func (h *RemindersHandler) SendNow(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.reminders.SendNow(c.UserContext(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Reminder sent."})
}
