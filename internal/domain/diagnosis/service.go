package diagnosis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tcm/tcm/internal/platform/sse"
)

// IntakeSource supplies the pre-visit metadata a diagnosis run starts from.
// Values are already validated by the visit layer; absence is normal.
type IntakeSource interface {
	IntakeMetadata(ctx context.Context, visitID uuid.UUID) (height, weight *float64, priorLog string, err error)
}

// Service runs diagnosis pipelines for visits and persists the outcomes.
type Service struct {
	orch   *Orchestrator
	repo   Repository
	intake IntakeSource
	logger zerolog.Logger
}

func NewService(orch *Orchestrator, repo Repository, intake IntakeSource, logger zerolog.Logger) *Service {
	return &Service{orch: orch, repo: repo, intake: intake, logger: logger}
}

// buildInput assembles the pipeline input, folding in the visit's intake
// metadata when available. A missing or unreadable intake is not fatal; the
// pipeline runs on the transcript alone.
func (s *Service) buildInput(ctx context.Context, visitID uuid.UUID, transcript string) Input {
	in := Input{Transcript: transcript}
	if s.intake == nil {
		return in
	}
	height, weight, priorLog, err := s.intake.IntakeMetadata(ctx, visitID)
	if err != nil {
		s.logger.Warn().Err(err).Str("visit_id", visitID.String()).Msg("intake metadata unavailable")
		return in
	}
	in.Height, in.Weight, in.PriorLog = height, weight, priorLog
	return in
}

func recordFromPayload(visitID uuid.UUID, p CompletePayload, model string) *Record {
	return &Record{
		VisitID:                visitID,
		FormattedMedicalRecord: p.FormattedMedicalRecord,
		TypeInference:          p.TypeInference,
		DiagnosisExplanation:   p.DiagnosisExplanation,
		Prescription:           p.Prescription,
		ExercisePrescription:   p.ExercisePrescription,
		OverallStatus:          p.Status,
		ModelName:              model,
		ResponseTime:           p.TotalProcessingTime,
	}
}

// Run executes the pipeline fully buffered and persists the result unless
// the run failed outright. The returned record is nil when nothing was
// saved.
func (s *Service) Run(ctx context.Context, visitID uuid.UUID, transcript string) (*PipelineResult, *Record, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil, fmt.Errorf("transcript is required")
	}

	in := s.buildInput(ctx, visitID, transcript)
	res := s.orch.ProcessCompleteDiagnosis(ctx, in)
	if res.OverallStatus == OverallFailed {
		return res, nil, nil
	}

	rec := recordFromPayload(visitID, res.completePayload(), s.orch.Model())
	if err := s.repo.Create(ctx, rec); err != nil {
		return res, nil, fmt.Errorf("save diagnosis: %w", err)
	}
	return res, rec, nil
}

// Stream executes the pipeline in streaming mode, bridged so that a
// completed run is persisted after the event sequence ends and the outcome
// appended as a saved or save_error event.
func (s *Service) Stream(ctx context.Context, visitID uuid.UUID, transcript string) (<-chan sse.Event, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is required")
	}

	in := s.buildInput(ctx, visitID, transcript)
	events := s.orch.StreamCompleteDiagnosis(ctx, in)

	save := func(ctx context.Context, p CompletePayload) (uuid.UUID, error) {
		rec := recordFromPayload(visitID, p, s.orch.Model())
		if err := s.repo.Create(ctx, rec); err != nil {
			return uuid.Nil, err
		}
		return rec.ID, nil
	}
	return Bridge(ctx, events, save, s.logger), nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByVisit(ctx, visitID, limit, offset)
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
