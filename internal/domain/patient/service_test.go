package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) SearchByName(_ context.Context, name string, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func strPtr(s string) *string { return &s }

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{Name: "Li Wei", Gender: strPtr("male")}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient() error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected an assigned id")
	}
}

func TestCreatePatient_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreatePatient(context.Background(), &Patient{Name: "   "}); err == nil {
		t.Fatal("expected an error for a blank name")
	}
}

func TestCreatePatient_RejectsInvalidGender(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &Patient{Name: "Li Wei", Gender: strPtr("m")}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Fatal("expected an error for an invalid gender")
	}
}

func TestListPatients_NameSearch(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	_ = svc.CreatePatient(context.Background(), &Patient{Name: "Li Wei"})
	_ = svc.CreatePatient(context.Background(), &Patient{Name: "Zhang Min"})

	got, total, err := svc.ListPatients(context.Background(), "zhang", 20, 0)
	if err != nil {
		t.Fatalf("ListPatients() error: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Name != "Zhang Min" {
		t.Errorf("search returned %d results", total)
	}
}
