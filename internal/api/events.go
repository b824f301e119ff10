package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/jobsh/internal/events"
)

// registerEventRoutes registers the job lifecycle SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Job Event Stream",
		Description: "Real-time job lifecycle events: launches, completions, kills and reaper diagnostics",
		Tags:        []string{"events"},
	}, map[string]any{
		"job-started":          events.JobStartedEvent{},
		"job-completed":        events.JobCompletedEvent{},
		"job-kill-requested":   events.JobKillRequestedEvent{},
		"reaper-drained":       events.ReaperDrainedEvent{},
		"reaper-inconsistency": events.ReaperInconsistencyEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.JobStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobCompletedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobKillRequestedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ReaperDrainedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ReaperInconsistencyEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
