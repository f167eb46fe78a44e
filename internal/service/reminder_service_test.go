package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/events"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

const (
	testTriggerHour  = 9
	testUrgentWindow = 4 * time.Hour
)

func TestClassifyReminder(t *testing.T) {
	loc := kolkata()
	at := func(day, hour, minute int) time.Time {
		return time.Date(2025, 3, day, hour, minute, 0, 0, loc)
	}

	tests := []struct {
		name     string
		now      time.Time
		deadline time.Time
		want     domain.ReminderKind
	}{
		{name: "tomorrow during trigger hour", now: at(10, 9, 15), deadline: at(11, 10, 0), want: domain.ReminderDayAhead},
		{name: "tomorrow midnight counts", now: at(10, 9, 0), deadline: at(11, 0, 0), want: domain.ReminderDayAhead},
		{name: "tomorrow outside trigger hour", now: at(10, 14, 0), deadline: at(11, 10, 0), want: domain.ReminderNone},
		{name: "day after tomorrow", now: at(10, 9, 0), deadline: at(12, 0, 0), want: domain.ReminderNone},
		{name: "thirty minutes out", now: at(10, 14, 0), deadline: at(10, 14, 30), want: domain.ReminderUrgent},
		{name: "window upper bound inclusive", now: at(10, 14, 0), deadline: at(10, 18, 0), want: domain.ReminderUrgent},
		{name: "just past window", now: at(10, 14, 0), deadline: at(10, 18, 1), want: domain.ReminderNone},
		{name: "deadline equals now", now: at(10, 14, 0), deadline: at(10, 14, 0), want: domain.ReminderUrgent},
		{name: "already past", now: at(10, 14, 0), deadline: at(10, 13, 59), want: domain.ReminderNone},
		{name: "late night urgent rolls into tomorrow", now: at(10, 23, 0), deadline: at(11, 0, 30), want: domain.ReminderUrgent},
		{name: "tonight beyond window", now: at(10, 9, 0), deadline: at(11, 0, 0).Add(-time.Minute), want: domain.ReminderNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyReminder(tc.deadline, tc.now, loc, testTriggerHour, testUrgentWindow)
			assert.Equal(t, tc.want, got)
		})
	}
}

func newTestReminderService(repo *fakeTaskRepo, users *fakeUserRepo, mailer *fakeMailer, now time.Time) (*ReminderService, *eventLog, *fakeRecorder) {
	log, dispatcher := newEventLog()
	recorder := &fakeRecorder{}
	svc := NewReminderService(ReminderDependencies{
		TaskRepo:     repo,
		UserRepo:     users,
		Mailer:       mailer,
		Dispatcher:   dispatcher,
		Recorder:     recorder,
		Location:     kolkata(),
		TriggerHour:  testTriggerHour,
		UrgentWindow: testUrgentWindow,
		Clock:        func() time.Time { return now },
	})
	return svc, log, recorder
}

func TestReminderService_ScanSendsUrgentReminder(t *testing.T) {
	loc := kolkata()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	repo := newFakeTaskRepo()
	repo.owners["u1"] = domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}
	repo.seed(domain.Task{UserID: "u1", Title: "Submit form", Deadline: ptr(now.Add(30 * time.Minute).UTC())})
	repo.seed(domain.Task{UserID: "u1", Title: "Someday", Deadline: ptr(now.Add(72 * time.Hour).UTC())})
	repo.seed(domain.Task{UserID: "u1", Title: "No deadline"})
	mailer := &fakeMailer{}

	svc, log, recorder := newTestReminderService(repo, newFakeUserRepo(), mailer, now)
	report, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ScanReport{Scanned: 2, Urgent: 1, Sent: 1}, report)
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Urgent")
	assert.Contains(t, msg.Subject, "Submit form")
	assert.Contains(t, msg.Body, "Hi Asha")
	assert.Contains(t, msg.Body, "10 Mar 2025 at 02:30 PM")
	assert.Equal(t, []events.EventType{events.EventReminderSent}, log.types())
	assert.Equal(t, []reminderCount{{kind: "urgent", delivered: true}}, recorder.reminders)
}

func TestReminderService_ScanDayAheadOnlyDuringTriggerHour(t *testing.T) {
	loc := kolkata()
	deadline := time.Date(2025, 3, 11, 10, 0, 0, 0, loc).UTC()

	for _, tc := range []struct {
		hour     int
		wantSent int
	}{
		{hour: 9, wantSent: 1},
		{hour: 14, wantSent: 0},
	} {
		repo := newFakeTaskRepo()
		repo.owners["u1"] = domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}
		repo.seed(domain.Task{UserID: "u1", Title: "Dentist", Deadline: ptr(deadline)})
		mailer := &fakeMailer{}

		now := time.Date(2025, 3, 10, tc.hour, 20, 0, 0, loc)
		svc, _, _ := newTestReminderService(repo, newFakeUserRepo(), mailer, now)
		report, err := svc.Scan(context.Background())

		require.NoError(t, err)
		assert.Equal(t, tc.wantSent, report.Sent, "hour %d", tc.hour)
		assert.Equal(t, tc.wantSent, report.DayAhead, "hour %d", tc.hour)
		if tc.wantSent == 1 {
			assert.Contains(t, mailer.sent[0].Subject, "due tomorrow")
		}
	}
}

func TestReminderService_ScanContinuesAfterDeliveryFailure(t *testing.T) {
	loc := kolkata()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	repo := newFakeTaskRepo()
	repo.owners["u1"] = domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}
	repo.owners["u2"] = domain.User{ID: "u2", Name: "Ravi", Email: "ravi@example.com"}
	repo.seed(domain.Task{UserID: "u1", Title: "one", Deadline: ptr(now.Add(time.Hour).UTC())})
	repo.seed(domain.Task{UserID: "u2", Title: "two", Deadline: ptr(now.Add(2 * time.Hour).UTC())})
	mailer := &fakeMailer{failFor: map[string]bool{"asha@example.com": true}}

	svc, log, recorder := newTestReminderService(repo, newFakeUserRepo(), mailer, now)
	report, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Urgent)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ravi@example.com", mailer.sent[0].To)
	assert.Len(t, log.types(), 1)
	assert.ElementsMatch(t, []reminderCount{
		{kind: "urgent", delivered: true},
		{kind: "urgent", delivered: false},
	}, recorder.reminders)
}

func TestReminderService_ScanResendsOnRepeat(t *testing.T) {
	loc := kolkata()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	repo := newFakeTaskRepo()
	repo.owners["u1"] = domain.User{ID: "u1", Email: "asha@example.com"}
	repo.seed(domain.Task{UserID: "u1", Title: "soon", Deadline: ptr(now.Add(time.Hour).UTC())})
	mailer := &fakeMailer{}

	svc, _, _ := newTestReminderService(repo, newFakeUserRepo(), mailer, now)
	_, err := svc.Scan(context.Background())
	require.NoError(t, err)
	_, err = svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, mailer.sent, 2)
	assert.Contains(t, mailer.sent[0].Body, "Hi there")
}

func TestReminderService_ScanListFailure(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.listErr = errors.New("db down")

	svc, _, _ := newTestReminderService(repo, newFakeUserRepo(), &fakeMailer{}, time.Now())
	_, err := svc.Scan(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, repo.listErr)
}

func TestReminderService_SendNow(t *testing.T) {
	loc := kolkata()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)
	users := newFakeUserRepo()
	owner := &domain.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, users.Create(context.Background(), owner))

	repo := newFakeTaskRepo()
	task := repo.seed(domain.Task{UserID: owner.ID, Title: "far away", Deadline: ptr(now.Add(240 * time.Hour).UTC())})

	t.Run("delivers regardless of window", func(t *testing.T) {
		mailer := &fakeMailer{}
		svc, _, _ := newTestReminderService(repo, users, mailer, now)

		require.NoError(t, svc.SendNow(context.Background(), owner.ID, task.ID))
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "asha@example.com", mailer.sent[0].To)
	})

	t.Run("delivery failure", func(t *testing.T) {
		mailer := &fakeMailer{failFor: map[string]bool{"asha@example.com": true}}
		svc, _, _ := newTestReminderService(repo, users, mailer, now)

		err := svc.SendNow(context.Background(), owner.ID, task.ID)
		assert.Equal(t, apperrors.CodeDeliveryFailed, apperrors.CodeOf(err))
	})

	t.Run("not the owner", func(t *testing.T) {
		svc, _, _ := newTestReminderService(repo, users, &fakeMailer{}, now)
		err := svc.SendNow(context.Background(), uuid.NewString(), task.ID)
		assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	})

	t.Run("unknown task", func(t *testing.T) {
		svc, _, _ := newTestReminderService(repo, users, &fakeMailer{}, now)
		err := svc.SendNow(context.Background(), owner.ID, uuid.NewString())
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})
}
