package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tcm/tcm/internal/platform/auth"
)

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
}

func NewService(repo Repository, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

func (s *Service) Register(ctx context.Context, username, password, fullName string) (*Doctor, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username already taken")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	d := &Doctor{Username: username, PasswordHash: hash, FullName: strings.TrimSpace(fullName)}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Authenticate verifies the credentials and returns the doctor plus a signed
// token. The same error covers unknown usernames and wrong passwords.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Doctor, string, error) {
	d, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil || !auth.VerifyPassword(password, d.PasswordHash) {
		return nil, "", fmt.Errorf("invalid credentials")
	}
	token, err := s.issuer.Issue(d.ID, d.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return d, token, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, d *Doctor) error {
	if strings.TrimSpace(d.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, d)
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("doctor not found: %w", err)
	}
	if !auth.VerifyPassword(current, d.PasswordHash) {
		return fmt.Errorf("current password is wrong")
	}
	if len(next) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}
