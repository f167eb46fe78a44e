package service

import (
	"context"
	"errors"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/events"
	"github.com/spec-kit/task-tracker/internal/mail"
	"github.com/spec-kit/task-tracker/internal/repository"
)

// fakeTaskRepo keeps tasks in memory. WithTx snapshots the store and restores
// it when fn fails.
type fakeTaskRepo struct {
	tasks        map[string]domain.Task
	owners       map[string]domain.User
	creates      int
	deleteAllErr error
	listErr      error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]domain.Task{}, owners: map[string]domain.User{}}
}

func (r *fakeTaskRepo) seed(task domain.Task) domain.Task {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	r.tasks[task.ID] = task
	return task
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.creates++
	task.ID = uuid.NewString()
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &task, nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range r.tasks {
		if task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListWithDeadline(_ context.Context) ([]domain.TaskReminder, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.TaskReminder
	for _, task := range r.tasks {
		if task.Deadline == nil {
			continue
		}
		owner := r.owners[task.UserID]
		out = append(out, domain.TaskReminder{Task: task, OwnerName: owner.Name, OwnerEmail: owner.Email})
	}
	return out, nil
}

func (r *fakeTaskRepo) UpdateDescription(_ context.Context, id, description string) error {
	return r.update(id, func(t *domain.Task) { t.Description = description })
}

func (r *fakeTaskRepo) UpdateDeadline(_ context.Context, id string, deadline *time.Time) error {
	return r.update(id, func(t *domain.Task) { t.Deadline = deadline })
}

func (r *fakeTaskRepo) UpdateStatus(_ context.Context, id string, status domain.TaskStatus) error {
	return r.update(id, func(t *domain.Task) { t.Status = status })
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, task := range r.tasks {
		if task.UserID == userID {
			delete(r.tasks, id)
			n++
		}
	}
	if r.deleteAllErr != nil {
		return 0, r.deleteAllErr
	}
	return n, nil
}

func (r *fakeTaskRepo) WithTx(_ context.Context, fn func(repo repository.TaskRepository) error) error {
	snapshot := make(map[string]domain.Task, len(r.tasks))
	for id, task := range r.tasks {
		snapshot[id] = task
	}
	if err := fn(r); err != nil {
		r.tasks = snapshot
		return err
	}
	return nil
}

func (r *fakeTaskRepo) update(id string, mutate func(*domain.Task)) error {
	task, ok := r.tasks[id]
	if !ok {
		return pgx.ErrNoRows
	}
	mutate(&task)
	r.tasks[id] = task
	return nil
}

type fakeUserRepo struct {
	byID map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

// fakeMailer records sent messages and fails for listed recipients.
type fakeMailer struct {
	sent    []mail.Message
	failFor map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.failFor[msg.To] {
		return &mail.DeliveryError{Recipient: msg.To, Err: errors.New("connection refused")}
	}
	m.sent = append(m.sent, msg)
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventLog() (*eventLog, events.Dispatcher) {
	log := &eventLog{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.events = append(log.events, e)
			return nil
		})
	}
	return log, dispatcher
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type reminderCount struct {
	kind      string
	delivered bool
}

type fakeRecorder struct {
	reminders []reminderCount
	events    []string
}

func (r *fakeRecorder) RecordReminder(kind string, delivered bool) {
	r.reminders = append(r.reminders, reminderCount{kind: kind, delivered: delivered})
}

func (r *fakeRecorder) RecordTaskEvent(eventType string) {
	r.events = append(r.events, eventType)
}

func kolkata() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}

func ptr(t time.Time) *time.Time { return &t }
