package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/study-share/internal/domain"
)

func TestPublishReachesEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher(zaptest.NewLogger(t))

	var seen []string
	d.Subscribe(EventReportFiled, func(context.Context, Event) error {
		seen = append(seen, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventReportFiled, func(_ context.Context, e Event) error {
		seen = append(seen, "second")
		assert.Equal(t, "r-1", e.Payload.(ReportFiledPayload).ReportID)
		return nil
	})
	d.Subscribe(EventQuestionDeleted, func(context.Context, Event) error {
		seen = append(seen, "other")
		return nil
	})

	event := New(EventReportFiled, ActorFrom(domain.Identity{UserID: "u", Role: domain.RoleUser}), ReportFiledPayload{ReportID: "r-1"})
	assert.NoError(t, d.Publish(context.Background(), event))
	assert.Equal(t, []string{"first", "second"}, seen)
	assert.NotEmpty(t, event.ID)
}
