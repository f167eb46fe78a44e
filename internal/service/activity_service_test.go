package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/task-tracker/internal/events"
)

func TestActivityService_RecordsEveryEventType(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	recorder := &fakeRecorder{}
	dispatcher := events.NewInMemoryDispatcher(nil)

	NewActivityService(dispatcher, recorder, zap.New(core)).RegisterHandlers()

	for _, eventType := range events.AllTypes {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
			ID:     "evt",
			Type:   eventType,
			UserID: "u1",
			TaskID: "t1",
		}))
	}

	assert.Len(t, recorder.events, len(events.AllTypes))
	assert.Equal(t, string(events.EventTaskCreated), recorder.events[0])
	require.Equal(t, len(events.AllTypes), logs.Len())
	assert.Equal(t, "task_created", logs.All()[0].Message)
	assert.Equal(t, "t1", logs.All()[0].ContextMap()["task_id"])
}
