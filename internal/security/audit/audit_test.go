package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendgate/internal/security"
	"attendgate/pkg/requestcontext"
)

func TestRecordBuildsEventFromContext(t *testing.T) {
	recorder := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	ev := recorder.Record(ctx, security.EventIPBlocked, security.SeverityHigh, "203.0.113.9", "address not in allow-list")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, now, ev.Timestamp)
	assert.Equal(t, security.EventIPBlocked, ev.Type)
	assert.Equal(t, security.SeverityHigh, ev.Severity)
	assert.Equal(t, "203.0.113.9", ev.ClientKey)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	recorder := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		recorder.Record(ctx, security.EventInvalidAuth, security.SeverityMedium, "client", fmt.Sprintf("event %d", i))
	}

	events := recorder.Recent()
	require.Len(t, events, 3)
	assert.Equal(t, "event 0", events[0].Details)
	assert.Equal(t, "event 2", events[2].Details)
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	recorder := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	total := defaultRingSize + 10
	for i := 0; i < total; i++ {
		recorder.Record(ctx, security.EventInvalidAuth, security.SeverityMedium, "client", fmt.Sprintf("event %d", i))
	}

	events := recorder.Recent()
	require.Len(t, events, defaultRingSize)
	assert.Equal(t, fmt.Sprintf("event %d", total-defaultRingSize), events[0].Details)
	assert.Equal(t, fmt.Sprintf("event %d", total-1), events[len(events)-1].Details)
}
