package diagnosis

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tcm/tcm/internal/platform/sse"
)

// SaveFunc persists a completed streamed run and returns the record id.
type SaveFunc func(ctx context.Context, payload CompletePayload) (uuid.UUID, error)

// Bridge re-emits every event from a streamed diagnosis run while watching
// for the terminal complete event. Once the wrapped sequence is exhausted,
// a captured non-failed payload is handed to save and the outcome appended
// as one saved or save_error event. Partial_success runs persist on purpose:
// the prescription is the primary clinical deliverable, and a row missing
// only the exercise plan is still worth keeping. Only failed runs skip the
// save. Streaming finishes before persistence starts: the client must never
// wait on the database to see content, and an abandoned or errored-out
// stream must never produce a dangling row.
func Bridge(ctx context.Context, events <-chan sse.Event, save SaveFunc, logger zerolog.Logger) <-chan sse.Event {
	out := make(chan sse.Event)
	go func() {
		defer close(out)

		var complete *CompletePayload
		for ev := range events {
			if ev.Type == EventComplete {
				if p, okType := ev.Data.(CompletePayload); okType {
					complete = &p
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		if complete == nil || complete.Status == OverallFailed {
			return
		}

		id, err := save(ctx, *complete)
		if err != nil {
			logger.Error().Err(err).Msg("diagnosis save failed after stream")
			select {
			case out <- sse.Event{Type: EventSaveError, Data: ErrorPayload{Message: err.Error()}}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- sse.Event{Type: EventSaved, Data: SavedPayload{DiagnosisID: id}}:
		case <-ctx.Done():
		}
	}()
	return out
}
