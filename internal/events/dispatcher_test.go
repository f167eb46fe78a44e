package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_DeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []string

	d.Subscribe(EventTaskCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TaskID)
		return errors.New("handler broke")
	})
	d.Subscribe(EventTaskCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TaskID)
		return nil
	})
	d.Subscribe(EventTaskDeleted, func(_ context.Context, e Event) error {
		got = append(got, "deleted")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTaskCreated, TaskID: "t1"}))
	assert.Equal(t, []string{"first:t1", "second:t1"}, got)
}
