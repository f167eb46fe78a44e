package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/events"
)

// EventRecorder counts lifecycle events. *observability.Metrics satisfies it.
type EventRecorder interface {
	RecordTaskEvent(eventType string)
}

// ActivityService turns domain events into structured logs and counters.
type ActivityService struct {
	dispatcher events.Dispatcher
	recorder   EventRecorder
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, recorder EventRecorder, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every event type.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *ActivityService) handle(_ context.Context, event events.Event) error {
	if a.recorder != nil {
		a.recorder.RecordTaskEvent(string(event.Type))
	}
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.Time("at", event.Timestamp),
	}
	if event.TaskID != "" {
		fields = append(fields, zap.String("task_id", event.TaskID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}
