package diagnosis

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tcm/tcm/internal/platform/sse"
)

type saveRecorder struct {
	calls int
	id    uuid.UUID
	err   error
}

func (s *saveRecorder) save(_ context.Context, _ CompletePayload) (uuid.UUID, error) {
	s.calls++
	return s.id, s.err
}

func feed(evs ...sse.Event) <-chan sse.Event {
	ch := make(chan sse.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestBridge_SavesAfterSuccessfulComplete(t *testing.T) {
	rec := &saveRecorder{id: uuid.New()}
	out := Bridge(context.Background(), feed(
		sse.Event{Type: EventStageStart, Data: StageStartPayload{Stage: StageMedicalRecord}},
		sse.Event{Type: EventComplete, Data: CompletePayload{Status: OverallSuccess, Prescription: "p"}},
	), rec.save, zerolog.Nop())

	evs := collectEvents(t, out)

	if rec.calls != 1 {
		t.Fatalf("save called %d times, want 1", rec.calls)
	}
	saved := 0
	for _, ev := range evs {
		if ev.Type == EventSaved {
			saved++
			if ev.Data.(SavedPayload).DiagnosisID != rec.id {
				t.Error("saved event carries wrong id")
			}
		}
	}
	if saved != 1 {
		t.Errorf("got %d saved events, want exactly 1", saved)
	}
	if evs[len(evs)-1].Type != EventSaved {
		t.Error("saved must follow the wrapped sequence")
	}
}

func TestBridge_ReEmitsEverythingUnchanged(t *testing.T) {
	rec := &saveRecorder{id: uuid.New()}
	in := []sse.Event{
		{Type: EventStageStart, Data: StageStartPayload{Stage: StageMedicalRecord, Step: "1/4"}},
		{Type: EventContent, Data: ContentPayload{Stage: StageMedicalRecord, Chunk: "x"}},
		{Type: EventStageComplete, Data: StageCompletePayload{Stage: StageMedicalRecord, Result: "x"}},
		{Type: EventComplete, Data: CompletePayload{Status: OverallSuccess}},
	}
	evs := collectEvents(t, Bridge(context.Background(), feed(in...), rec.save, zerolog.Nop()))

	if len(evs) != len(in)+1 {
		t.Fatalf("got %d events, want %d", len(evs), len(in)+1)
	}
	for i, ev := range in {
		if evs[i].Type != ev.Type || evs[i].Data != ev.Data {
			t.Errorf("event %d altered: %+v", i, evs[i])
		}
	}
}

func TestBridge_NoSaveWithoutComplete(t *testing.T) {
	rec := &saveRecorder{}
	evs := collectEvents(t, Bridge(context.Background(), feed(
		sse.Event{Type: EventStageStart, Data: StageStartPayload{Stage: StageMedicalRecord}},
		sse.Event{Type: EventError, Data: ErrorPayload{Stage: StageMedicalRecord, Message: "boom"}},
	), rec.save, zerolog.Nop()))

	if rec.calls != 0 {
		t.Errorf("save called %d times, want 0", rec.calls)
	}
	for _, ev := range evs {
		if ev.Type == EventSaved || ev.Type == EventSaveError {
			t.Errorf("unexpected %s event", ev.Type)
		}
	}
}

func TestBridge_NoSaveOnFailedStatus(t *testing.T) {
	rec := &saveRecorder{}
	collectEvents(t, Bridge(context.Background(), feed(
		sse.Event{Type: EventComplete, Data: CompletePayload{Status: OverallFailed}},
	), rec.save, zerolog.Nop()))

	if rec.calls != 0 {
		t.Errorf("save called %d times, want 0", rec.calls)
	}
}

func TestBridge_SavesPartialSuccess(t *testing.T) {
	rec := &saveRecorder{id: uuid.New()}
	evs := collectEvents(t, Bridge(context.Background(), feed(
		sse.Event{Type: EventComplete, Data: CompletePayload{Status: OverallPartialSuccess}},
	), rec.save, zerolog.Nop()))

	if rec.calls != 1 {
		t.Errorf("save called %d times, want 1", rec.calls)
	}
	if evs[len(evs)-1].Type != EventSaved {
		t.Error("expected a saved event")
	}
}

func TestBridge_SaveErrorEvent(t *testing.T) {
	rec := &saveRecorder{err: fmt.Errorf("unique constraint violated")}
	evs := collectEvents(t, Bridge(context.Background(), feed(
		sse.Event{Type: EventComplete, Data: CompletePayload{Status: OverallSuccess}},
	), rec.save, zerolog.Nop()))

	last := evs[len(evs)-1]
	if last.Type != EventSaveError {
		t.Fatalf("last event type = %s, want save_error", last.Type)
	}
	if last.Data.(ErrorPayload).Message == "" {
		t.Error("save_error must carry the failure message")
	}
}

// Abandoning the stream before it completes must never trigger a save.
func TestBridge_NoSaveOnAbandonedStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &saveRecorder{}

	in := make(chan sse.Event)
	out := Bridge(ctx, in, rec.save, zerolog.Nop())

	in <- sse.Event{Type: EventStageStart, Data: StageStartPayload{Stage: StageMedicalRecord}}
	<-out
	cancel()
	close(in)

	for range out {
	}
	if rec.calls != 0 {
		t.Errorf("save called %d times, want 0", rec.calls)
	}
}
