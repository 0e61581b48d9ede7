package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tcm/tcm/internal/platform/llm"
	"github.com/tcm/tcm/internal/platform/sse"
)

// Event types emitted by the streaming entry point and the save bridge.
const (
	EventStageStart    = "stage_start"
	EventContent       = "content"
	EventStageComplete = "stage_complete"
	EventComplete      = "complete"
	EventError         = "error"
	EventSaved         = "saved"
	EventSaveError     = "save_error"
)

// StageStartPayload opens a stage on the event stream.
type StageStartPayload struct {
	Stage     string `json:"stage"`
	StageName string `json:"stage_name"`
	Step      string `json:"step"`
}

// ContentPayload carries one streamed text fragment. It is always the
// fragment alone, never the accumulated text, so payload size stays bounded.
type ContentPayload struct {
	Stage string `json:"stage"`
	Chunk string `json:"chunk"`
}

// StageCompletePayload closes a stage on the event stream with its extracted
// result.
type StageCompletePayload struct {
	Stage        string      `json:"stage"`
	StageName    string      `json:"stage_name"`
	Status       StageStatus `json:"status"`
	Result       string      `json:"result"`
	Explanation  string      `json:"explanation,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// ErrorPayload terminates the event stream early.
type ErrorPayload struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// SavedPayload reports the persisted record's identifier.
type SavedPayload struct {
	DiagnosisID uuid.UUID `json:"diagnosis_id"`
}

// stageDef fixes a stage's identity and sampling temperature. The narrative
// stages run warmer than the classification-like ones.
type stageDef struct {
	id          string
	label       string
	step        int
	temperature float32
}

var stageDefs = [4]stageDef{
	{StageMedicalRecord, "Medical record generation", 1, 0.6},
	{StageSyndromeInference, "Syndrome inference", 2, 0.3},
	{StagePrescription, "Prescription generation", 3, 0.3},
	{StageExercisePrescription, "Exercise prescription", 4, 0.5},
}

// Orchestrator runs the four-stage diagnosis pipeline. It holds no per-request
// state; one instance serves all concurrent requests.
type Orchestrator struct {
	llm     llm.Client
	prompts *PromptBuilder
	logger  zerolog.Logger
}

func NewOrchestrator(client llm.Client, prompts *PromptBuilder, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{llm: client, prompts: prompts, logger: logger}
}

// Model reports the underlying client's model name.
func (o *Orchestrator) Model() string { return o.llm.Model() }

// fragmentSink receives each streamed fragment the moment it arrives. A nil
// sink selects the blocking call shape instead.
type fragmentSink func(fragment string) error

// invoke issues one model call for a stage and returns the full response
// text. With a sink it streams, feeding every fragment through the sink while
// accumulating; without one it blocks for the complete response.
func (o *Orchestrator) invoke(ctx context.Context, def stageDef, prompt string, sink fragmentSink) (string, error) {
	if sink == nil {
		return o.llm.Complete(ctx, prompt, def.temperature)
	}

	stream, err := o.llm.Stream(ctx, prompt, def.temperature)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return buf.String(), err
		}
		buf.WriteString(frag)
		if err := sink(frag); err != nil {
			return buf.String(), err
		}
	}
	return buf.String(), nil
}

// runStage executes one stage end to end: model call, timing, tag extraction.
// Model failures never escape; they come back as an error-status result.
func (o *Orchestrator) runStage(ctx context.Context, def stageDef, prompt string, sink fragmentSink) StageResult {
	start := time.Now()
	raw, err := o.invoke(ctx, def, prompt, sink)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		o.logger.Error().Err(err).Str("stage", def.id).Msg("stage invocation failed")
		return StageResult{
			Status:         StageError,
			RawModelText:   raw,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
			Timestamp:      time.Now().UTC(),
		}
	}

	out, tagged := ExtractAnswer(raw)
	if !tagged {
		o.logger.Warn().Str("stage", def.id).Msg("response carries no answer tag, using full text")
	}

	res := StageResult{
		Status:          StageSuccess,
		ExtractedOutput: out,
		RawModelText:    raw,
		ProcessingTime:  elapsed,
		Timestamp:       time.Now().UTC(),
	}
	if def.id == StageSyndromeInference {
		if think, ok := ExtractThink(raw); ok {
			res.Explanation = think
		}
	}
	if out == "" {
		res.Status = StageError
		res.ErrorMessage = "model returned empty output"
	}
	return res
}

func skippedStage(reason string) StageResult {
	return StageResult{Status: StageSkipped, SkipReason: reason, Timestamp: time.Now().UTC()}
}

// deriveOverall applies the status table: prescription is the pivot, and an
// exercise-prescription failure alone only downgrades to partial_success.
func deriveOverall(prescription, exercise StageStatus) OverallStatus {
	switch {
	case prescription == StageSuccess && exercise == StageSuccess:
		return OverallSuccess
	case prescription == StageSuccess:
		return OverallPartialSuccess
	default:
		return OverallFailed
	}
}

// ProcessCompleteDiagnosis runs the pipeline fully buffered and returns the
// aggregate result. Stage failures are recorded in the result, never raised:
// partial diagnostic value must not be lost to an unhandled failure. The
// medical-record and syndrome-inference stages are hard gates; prescription
// and exercise prescription are attempted independently of each other once
// both gates pass.
func (o *Orchestrator) ProcessCompleteDiagnosis(ctx context.Context, in Input) *PipelineResult {
	start := time.Now()
	res := &PipelineResult{
		InputTranscript: in.Transcript,
		Height:          in.Height,
		Weight:          in.Weight,
		PriorLog:        in.PriorLog,
	}

	res.MedicalRecord = o.runStage(ctx, stageDefs[0], o.prompts.MedicalRecord(in.Transcript, in.PriorLog), nil)
	if res.MedicalRecord.Status != StageSuccess {
		res.SyndromeInference = skippedStage("medical record stage failed")
		res.Prescription = skippedStage("medical record stage failed")
		res.ExercisePrescription = skippedStage("medical record stage failed")
		res.OverallStatus = OverallFailed
		res.TotalProcessingTime = time.Since(start).Seconds()
		return res
	}
	record := res.MedicalRecord.ExtractedOutput

	res.SyndromeInference = o.runStage(ctx, stageDefs[1], o.prompts.SyndromeInference(record), nil)
	if res.SyndromeInference.Status != StageSuccess {
		res.Prescription = skippedStage("syndrome inference stage failed")
		res.ExercisePrescription = skippedStage("syndrome inference stage failed")
		res.OverallStatus = OverallFailed
		res.TotalProcessingTime = time.Since(start).Seconds()
		return res
	}
	syndrome := res.SyndromeInference.ExtractedOutput

	res.Prescription = o.runStage(ctx, stageDefs[2], o.prompts.Prescription(record, syndrome), nil)
	res.ExercisePrescription = o.runStage(ctx, stageDefs[3], o.prompts.ExercisePrescription(record, syndrome, in.Height, in.Weight), nil)

	res.OverallStatus = deriveOverall(res.Prescription.Status, res.ExercisePrescription.Status)
	res.TotalProcessingTime = time.Since(start).Seconds()
	return res
}

// StreamCompleteDiagnosis runs the same pipeline but emits progress as an
// ordered event sequence: per stage one stage_start, one content event per
// model fragment, one stage_complete; then a terminal complete event carrying
// the flattened result. Cancelling ctx abandons the run; the channel is
// always closed when the sequence ends.
func (o *Orchestrator) StreamCompleteDiagnosis(ctx context.Context, in Input) <-chan sse.Event {
	ch := make(chan sse.Event)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error().Interface("panic", r).Msg("diagnosis stream panicked")
				select {
				case ch <- sse.Event{Type: EventError, Data: ErrorPayload{Message: fmt.Sprint(r)}}:
				case <-ctx.Done():
				}
			}
			close(ch)
		}()
		o.streamPipeline(ctx, in, ch)
	}()
	return ch
}

func (o *Orchestrator) streamPipeline(ctx context.Context, in Input, ch chan<- sse.Event) {
	start := time.Now()

	emit := func(ev sse.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// run executes one stage bracketed by stage_start and stage_complete,
	// forwarding fragments as content events. ok=false means the client is
	// gone and the whole run should stop silently.
	run := func(def stageDef, prompt string) (StageResult, bool) {
		if !emit(sse.Event{Type: EventStageStart, Data: StageStartPayload{
			Stage:     def.id,
			StageName: def.label,
			Step:      fmt.Sprintf("%d/4", def.step),
		}}) {
			return StageResult{}, false
		}

		abandoned := false
		sink := func(frag string) error {
			if !emit(sse.Event{Type: EventContent, Data: ContentPayload{Stage: def.id, Chunk: frag}}) {
				abandoned = true
				return ctx.Err()
			}
			return nil
		}

		sr := o.runStage(ctx, def, prompt, sink)
		if abandoned {
			return sr, false
		}

		if !emit(sse.Event{Type: EventStageComplete, Data: StageCompletePayload{
			Stage:        def.id,
			StageName:    def.label,
			Status:       sr.Status,
			Result:       sr.ExtractedOutput,
			Explanation:  sr.Explanation,
			ErrorMessage: sr.ErrorMessage,
		}}) {
			return sr, false
		}
		return sr, true
	}

	res := &PipelineResult{
		InputTranscript: in.Transcript,
		Height:          in.Height,
		Weight:          in.Weight,
		PriorLog:        in.PriorLog,
	}

	var ok bool
	res.MedicalRecord, ok = run(stageDefs[0], o.prompts.MedicalRecord(in.Transcript, in.PriorLog))
	if !ok {
		return
	}
	if res.MedicalRecord.Status != StageSuccess {
		emit(sse.Event{Type: EventError, Data: ErrorPayload{
			Stage:   StageMedicalRecord,
			Message: "medical record generation failed: " + res.MedicalRecord.ErrorMessage,
		}})
		return
	}
	record := res.MedicalRecord.ExtractedOutput

	res.SyndromeInference, ok = run(stageDefs[1], o.prompts.SyndromeInference(record))
	if !ok {
		return
	}
	if res.SyndromeInference.Status != StageSuccess {
		emit(sse.Event{Type: EventError, Data: ErrorPayload{
			Stage:   StageSyndromeInference,
			Message: "syndrome inference failed: " + res.SyndromeInference.ErrorMessage,
		}})
		return
	}
	syndrome := res.SyndromeInference.ExtractedOutput

	res.Prescription, ok = run(stageDefs[2], o.prompts.Prescription(record, syndrome))
	if !ok {
		return
	}
	res.ExercisePrescription, ok = run(stageDefs[3], o.prompts.ExercisePrescription(record, syndrome, in.Height, in.Weight))
	if !ok {
		return
	}

	res.OverallStatus = deriveOverall(res.Prescription.Status, res.ExercisePrescription.Status)
	res.TotalProcessingTime = time.Since(start).Seconds()

	emit(sse.Event{Type: EventComplete, Data: res.completePayload()})
}
