package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/events"
	"github.com/spec-kit/task-tracker/internal/mail"
	"github.com/spec-kit/task-tracker/internal/repository"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

// ReminderRecorder counts reminder outcomes. *observability.Metrics satisfies it.
type ReminderRecorder interface {
	RecordReminder(kind string, delivered bool)
}

// ReminderService scans deadlines and emails task owners.
type ReminderService struct {
	tasks        repository.TaskRepository
	users        repository.UserRepository
	mailer       mail.Mailer
	dispatcher   events.Dispatcher
	recorder     ReminderRecorder
	logger       *zap.Logger
	format       display.Formatter
	triggerHour  int
	urgentWindow time.Duration
	now          func() time.Time
}

// ReminderDependencies bundles collaborators for the reminder service.
type ReminderDependencies struct {
	TaskRepo     repository.TaskRepository
	UserRepo     repository.UserRepository
	Mailer       mail.Mailer
	Dispatcher   events.Dispatcher
	Recorder     ReminderRecorder
	Logger       *zap.Logger
	Location     *time.Location
	TriggerHour  int
	UrgentWindow time.Duration
	Clock        func() time.Time
}

// ScanReport summarizes one reminder pass.
type ScanReport struct {
	Scanned  int `json:"scanned"`
	DayAhead int `json:"day_ahead"`
	Urgent   int `json:"urgent"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

// NewReminderService builds the service.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ReminderService{
		tasks:        deps.TaskRepo,
		users:        deps.UserRepo,
		mailer:       deps.Mailer,
		dispatcher:   deps.Dispatcher,
		recorder:     deps.Recorder,
		logger:       logger,
		format:       display.NewFormatter(deps.Location),
		triggerHour:  deps.TriggerHour,
		urgentWindow: deps.UrgentWindow,
		now:          clock,
	}
}

// ClassifyReminder decides which reminder, if any, a deadline earns at now.
// A day-ahead reminder needs the deadline inside tomorrow (calendar day in
// loc) and the current local hour to equal triggerHour. Otherwise a deadline
// within [now, now+urgentWindow] is urgent.
func ClassifyReminder(deadline, now time.Time, loc *time.Location, triggerHour int, urgentWindow time.Duration) domain.ReminderKind {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	dayAfter := tomorrow.AddDate(0, 0, 1)

	if !deadline.Before(tomorrow) && deadline.Before(dayAfter) && local.Hour() == triggerHour {
		return domain.ReminderDayAhead
	}
	if !deadline.Before(now) && !deadline.After(now.Add(urgentWindow)) {
		return domain.ReminderUrgent
	}
	return domain.ReminderNone
}

// Scan evaluates every task with a deadline and sends the reminders that are
// due. A failed delivery is logged and counted; the scan continues. Repeated
// scans inside the same window send again.
func (s *ReminderService) Scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport

	items, err := s.tasks.ListWithDeadline(ctx)
	if err != nil {
		return report, fmt.Errorf("list tasks with deadline: %w", err)
	}

	now := s.now()
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		if item.Task.Deadline == nil {
			continue
		}

		kind := ClassifyReminder(*item.Task.Deadline, now, s.format.Location(), s.triggerHour, s.urgentWindow)
		switch kind {
		case domain.ReminderNone:
			continue
		case domain.ReminderDayAhead:
			report.DayAhead++
		case domain.ReminderUrgent:
			report.Urgent++
		}

		if err := s.deliver(ctx, item, kind); err != nil {
			report.Failed++
			s.logger.Warn("reminder delivery failed",
				zap.String("task_id", item.Task.ID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}
		report.Sent++
	}

	s.logger.Info("reminder scan finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}

// SendNow emails the owner about one of their tasks right away.
func (s *ReminderService) SendNow(ctx context.Context, userID, taskID string) error {
	if userID == "" {
		return apperrors.NewUnauthorized("User not logged in.")
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return apperrors.NewNotFound("task", nil)
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", nil)
		}
		return err
	}
	if task.UserID != userID {
		return apperrors.NewForbidden("Unauthorized")
	}
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	item := domain.TaskReminder{Task: *task, OwnerName: owner.Name, OwnerEmail: owner.Email}
	if err := s.deliver(ctx, item, domain.ReminderManual); err != nil {
		s.logger.Warn("reminder delivery failed", zap.String("task_id", task.ID), zap.Error(err))
		return apperrors.NewDeliveryFailed(err)
	}
	return nil
}

func (s *ReminderService) deliver(ctx context.Context, item domain.TaskReminder, kind domain.ReminderKind) error {
	err := s.mailer.Send(ctx, s.composeReminder(item, kind))
	if s.recorder != nil {
		s.recorder.RecordReminder(string(kind), err == nil)
	}
	if err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventReminderSent,
		UserID:  item.Task.UserID,
		TaskID:  item.Task.ID,
		Payload: events.ReminderSentPayload{Kind: kind, Recipient: item.OwnerEmail},
	})
	return nil
}

func (s *ReminderService) composeReminder(item domain.TaskReminder, kind domain.ReminderKind) mail.Message {
	task := item.Task
	name := item.OwnerName
	if strings.TrimSpace(name) == "" {
		name = "there"
	}

	due := "It has no deadline."
	if task.Deadline != nil {
		due = fmt.Sprintf("It is due on %s at %s.", s.format.Date(*task.Deadline), s.format.Time(*task.Deadline))
	}

	var subject, lead string
	switch kind {
	case domain.ReminderDayAhead:
		subject = fmt.Sprintf("Reminder: %q is due tomorrow", task.Title)
		lead = "This is a reminder that one of your tasks is due tomorrow."
	case domain.ReminderUrgent:
		subject = fmt.Sprintf("Urgent: %q is due soon", task.Title)
		lead = "One of your tasks is due within the next few hours."
	default:
		subject = fmt.Sprintf("Reminder: %q", task.Title)
		lead = "Here is a reminder about one of your tasks."
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n%s\n\n", name, lead)
	fmt.Fprintf(&body, "Task: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&body, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(&body, "Status: %s\n%s\n", task.Status, due)

	return mail.Message{To: item.OwnerEmail, Subject: subject, Body: body.String()}
}

func (s *ReminderService) publishEvent(ctx context.Context, event events.Event) {
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
