package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/events"
	"github.com/spec-kit/task-tracker/internal/repository"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// TaskService coordinates task workflows for a single authenticated user.
type TaskService struct {
	tasks      repository.TaskRepository
	deadlines  DeadlineParser
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Location   *time.Location
	Clock      func() time.Time
}

// TaskCreateInput describes the add-task form.
type TaskCreateInput struct {
	Title       string
	Description string
	Deadline    string
}

// NewTaskService builds the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		deadlines:  NewDeadlineParser(deps.Location),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Now exposes the service clock so callers can render with the same instant
// the ordering used.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// List returns the user's tasks in display order.
func (s *TaskService) List(ctx context.Context, userID string) ([]domain.Task, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorized("User not logged in.")
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SortTasks(tasks, s.now()), nil
}

// Create validates and stores a new Pending task, then returns it together
// with the refreshed ordered list.
func (s *TaskService) Create(ctx context.Context, userID string, input TaskCreateInput) (*domain.Task, []domain.Task, error) {
	if userID == "" {
		return nil, nil, apperrors.NewUnauthorized("User not logged in.")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, apperrors.Wrap(apperrors.CodeValidation, http.StatusBadRequest, domain.ErrEmptyTitle)
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return nil, nil, apperrors.Wrap(apperrors.CodeValidation, http.StatusBadRequest, domain.ErrTitleTooLong)
	}

	now := s.now()
	deadline, err := s.deadlines.Parse(input.Deadline, now)
	if err != nil {
		return nil, nil, err
	}

	task := &domain.Task{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TaskStatusPending,
		CreatedAt:   now.UTC(),
		Deadline:    deadline,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskCreated,
		UserID:  userID,
		TaskID:  task.ID,
		Payload: events.TaskCreatedPayload{Title: task.Title, Deadline: task.Deadline},
	})

	tasks, err := s.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return task, tasks, nil
}

// UpdateDescription replaces the description of an owned task. Overdue tasks
// may still be edited.
func (s *TaskService) UpdateDescription(ctx context.Context, userID, taskID, description string) (*domain.Task, error) {
	var task *domain.Task
	err := s.tasks.WithTx(ctx, func(repo repository.TaskRepository) error {
		var err error
		task, err = s.ownedTask(ctx, repo, userID, taskID)
		if err != nil {
			return err
		}
		task.Description = strings.TrimSpace(description)
		return repo.UpdateDescription(ctx, task.ID, task.Description)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskUpdated,
		UserID:  userID,
		TaskID:  task.ID,
		Payload: events.TaskUpdatedPayload{Field: "description"},
	})
	return task, nil
}

// UpdateDeadline sets or clears the deadline of an owned task. Blank input
// clears it; a past value is rejected. Ownership is checked before the input.
func (s *TaskService) UpdateDeadline(ctx context.Context, userID, taskID, raw string) (*domain.Task, error) {
	var task *domain.Task
	err := s.tasks.WithTx(ctx, func(repo repository.TaskRepository) error {
		var err error
		task, err = s.ownedTask(ctx, repo, userID, taskID)
		if err != nil {
			return err
		}
		deadline, err := s.deadlines.Parse(raw, s.now())
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodePastDeadline {
				return apperrors.Wrap(apperrors.CodePastDeadline, http.StatusBadRequest, domain.ErrPastDeadlineUpdate)
			}
			return err
		}
		task.Deadline = deadline
		return repo.UpdateDeadline(ctx, task.ID, deadline)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskUpdated,
		UserID:  userID,
		TaskID:  task.ID,
		Payload: events.TaskUpdatedPayload{Field: "deadline"},
	})
	return task, nil
}

// Toggle advances the task status one step through the cycle. Overdue tasks
// are locked.
func (s *TaskService) Toggle(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	now := s.now()
	var (
		task      *domain.Task
		oldStatus domain.TaskStatus
	)
	err := s.tasks.WithTx(ctx, func(repo repository.TaskRepository) error {
		var err error
		task, err = s.ownedTask(ctx, repo, userID, taskID)
		if err != nil {
			return err
		}
		if task.IsOverdue(now) {
			return apperrors.Wrap(apperrors.CodeOverdueLocked, http.StatusBadRequest, domain.ErrOverdueLocked)
		}
		oldStatus = task.Status
		task.Status = oldStatus.Next()
		return repo.UpdateStatus(ctx, task.ID, task.Status)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskStatusChanged,
		UserID:  userID,
		TaskID:  task.ID,
		Payload: events.TaskStatusChangedPayload{OldStatus: oldStatus, NewStatus: task.Status},
	})
	return task, nil
}

// Delete removes an owned task.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	err := s.tasks.WithTx(ctx, func(repo repository.TaskRepository) error {
		task, err := s.ownedTask(ctx, repo, userID, taskID)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, task.ID)
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskDeleted,
		UserID: userID,
		TaskID: taskID,
	})
	return nil
}

// Clear deletes every task of the user in one transaction. Store failures
// surface as a generic error; the cause is logged.
func (s *TaskService) Clear(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.NewUnauthorized("User not logged in.")
	}

	var deleted int64
	err := s.tasks.WithTx(ctx, func(repo repository.TaskRepository) error {
		n, err := repo.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		s.logger.Error("clear tasks failed", zap.String("user_id", userID), zap.Error(err))
		return 0, apperrors.NewClearFailed(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTasksCleared,
		UserID:  userID,
		Payload: events.TasksClearedPayload{Deleted: deleted},
	})
	return deleted, nil
}

// ownedTask loads a task and checks it belongs to userID. Malformed ids are
// reported as not found.
func (s *TaskService) ownedTask(ctx context.Context, repo repository.TaskRepository, userID, taskID string) (*domain.Task, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorized("User not logged in.")
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, apperrors.NewNotFound("task", nil)
	}
	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", nil)
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, apperrors.NewForbidden("Unauthorized")
	}
	return task, nil
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
