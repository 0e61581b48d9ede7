package visit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	visits  map[uuid.UUID]*Visit
	intakes map[uuid.UUID]*Intake // keyed by visit id
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		visits:  make(map[uuid.UUID]*Visit),
		intakes: make(map[uuid.UUID]*Intake),
	}
}

func (m *mockRepo) Create(_ context.Context, v *Visit) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	v.UpdatedAt = time.Now()
	m.visits[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return v, nil
}

func (m *mockRepo) Update(_ context.Context, v *Visit) error {
	m.visits[v.ID] = v
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.visits, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, _, _ int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) UpsertIntake(_ context.Context, in *Intake) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	m.intakes[in.VisitID] = in
	return nil
}

func (m *mockRepo) GetIntake(_ context.Context, visitID uuid.UUID) (*Intake, error) {
	in, ok := m.intakes[visitID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return in, nil
}

func f64(v float64) *float64 { return &v }

func TestCreateVisit_DefaultsAndValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	v := &Visit{PatientID: uuid.New()}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatalf("CreateVisit() error: %v", err)
	}
	if v.Status != "scheduled" {
		t.Errorf("status = %q, want scheduled", v.Status)
	}
	if v.StartedAt.IsZero() {
		t.Error("expected started_at to default")
	}

	if err := svc.CreateVisit(context.Background(), &Visit{}); err == nil {
		t.Fatal("expected an error without patient_id")
	}
	if err := svc.CreateVisit(context.Background(), &Visit{PatientID: uuid.New(), Status: "bogus"}); err == nil {
		t.Fatal("expected an error for an invalid status")
	}
}

func TestUpdateVisitStatus_CompletedSetsTimestamp(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &Visit{PatientID: uuid.New()}
	_ = svc.CreateVisit(context.Background(), v)

	got, err := svc.UpdateVisitStatus(context.Background(), v.ID, "completed")
	if err != nil {
		t.Fatalf("UpdateVisitStatus() error: %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestSaveIntake_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &Visit{PatientID: uuid.New()}
	_ = svc.CreateVisit(context.Background(), v)

	if err := svc.SaveIntake(context.Background(), &Intake{VisitID: v.ID, HeightCM: f64(-5)}); err == nil {
		t.Fatal("expected an error for a negative height")
	}
	if err := svc.SaveIntake(context.Background(), &Intake{VisitID: uuid.New()}); err == nil {
		t.Fatal("expected an error for an unknown visit")
	}
	in := &Intake{VisitID: v.ID, HeightCM: f64(170), WeightKG: f64(68), ConversationLog: "poor sleep"}
	if err := svc.SaveIntake(context.Background(), in); err != nil {
		t.Fatalf("SaveIntake() error: %v", err)
	}
}

func TestIntakeMetadata(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &Visit{PatientID: uuid.New()}
	_ = svc.CreateVisit(context.Background(), v)

	// no intake yet: all absent, no error
	h, w, log, err := svc.IntakeMetadata(context.Background(), v.ID)
	if err != nil || h != nil || w != nil || log != "" {
		t.Fatalf("expected absent metadata, got %v %v %q %v", h, w, log, err)
	}

	_ = svc.SaveIntake(context.Background(), &Intake{VisitID: v.ID, HeightCM: f64(170), WeightKG: f64(68), ConversationLog: "poor sleep"})
	h, w, log, err = svc.IntakeMetadata(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("IntakeMetadata() error: %v", err)
	}
	if h == nil || *h != 170 || w == nil || *w != 68 || log != "poor sleep" {
		t.Errorf("got %v %v %q", h, w, log)
	}
}
