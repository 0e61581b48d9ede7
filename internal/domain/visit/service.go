package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validStatuses = map[string]bool{
	"scheduled":   true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.Status == "" {
		v.Status = "scheduled"
	}
	if !validStatuses[v.Status] {
		return fmt.Errorf("invalid status: %s", v.Status)
	}
	if v.StartedAt.IsZero() {
		v.StartedAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateVisitStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Visit, error) {
	if !validStatuses[newStatus] {
		return nil, fmt.Errorf("invalid status: %s", newStatus)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("visit not found: %w", err)
	}
	v.Status = newStatus
	if newStatus == "completed" && v.CompletedAt == nil {
		now := time.Now().UTC()
		v.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// SaveIntake records or replaces the visit's pre-visit intake.
func (s *Service) SaveIntake(ctx context.Context, in *Intake) error {
	if in.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if in.HeightCM != nil && (*in.HeightCM <= 0 || *in.HeightCM > 300) {
		return fmt.Errorf("height_cm out of range")
	}
	if in.WeightKG != nil && (*in.WeightKG <= 0 || *in.WeightKG > 500) {
		return fmt.Errorf("weight_kg out of range")
	}
	if _, err := s.repo.GetByID(ctx, in.VisitID); err != nil {
		return fmt.Errorf("visit not found: %w", err)
	}
	return s.repo.UpsertIntake(ctx, in)
}

func (s *Service) GetIntake(ctx context.Context, visitID uuid.UUID) (*Intake, error) {
	return s.repo.GetIntake(ctx, visitID)
}

// IntakeMetadata supplies the validated intake fields the diagnosis pipeline
// consumes. A visit without an intake yields all-absent values, not an error.
func (s *Service) IntakeMetadata(ctx context.Context, visitID uuid.UUID) (*float64, *float64, string, error) {
	in, err := s.repo.GetIntake(ctx, visitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, "", nil
		}
		return nil, nil, "", err
	}
	return in.HeightCM, in.WeightKG, in.ConversationLog, nil
}
