package doctor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tcm/tcm/internal/platform/auth"
)

type mockRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockRepo() *mockRepo {
	return &mockRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.Username == username {
			return d, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, d *Doctor) error {
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	d, ok := m.doctors[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	d.PasswordHash = hash
	return nil
}

func newTestService() *Service {
	return NewService(newMockRepo(), auth.NewTokenIssuer("test-secret", time.Hour))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()

	d, err := svc.Register(context.Background(), "drli", "correct-horse", "Li Wei")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if d.PasswordHash == "correct-horse" {
		t.Error("password stored in the clear")
	}

	got, token, err := svc.Authenticate(context.Background(), "drli", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if token == "" || got.ID != d.ID {
		t.Error("expected a token for the registered doctor")
	}

	if _, _, err := svc.Authenticate(context.Background(), "drli", "wrong"); err == nil {
		t.Fatal("expected an error for a wrong password")
	}
	if _, _, err := svc.Authenticate(context.Background(), "nobody", "correct-horse"); err == nil {
		t.Fatal("expected an error for an unknown username")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Register(context.Background(), "", "correct-horse", "Li Wei"); err == nil {
		t.Error("expected an error for a blank username")
	}
	if _, err := svc.Register(context.Background(), "drli", "short", "Li Wei"); err == nil {
		t.Error("expected an error for a short password")
	}

	if _, err := svc.Register(context.Background(), "drli", "correct-horse", "Li Wei"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := svc.Register(context.Background(), "drli", "correct-horse", "Other"); err == nil {
		t.Error("expected an error for a duplicate username")
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService()
	d, _ := svc.Register(context.Background(), "drli", "correct-horse", "Li Wei")

	if err := svc.ChangePassword(context.Background(), d.ID, "wrong", "new-password-1"); err == nil {
		t.Fatal("expected an error for a wrong current password")
	}
	if err := svc.ChangePassword(context.Background(), d.ID, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), "drli", "new-password-1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
