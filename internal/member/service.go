package member

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service manages member lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new member service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a member with a zero point balance.
func (s *Service) Register(ctx context.Context) (Member, error) {
	m := Member{
		ID:        uuid.New().String(),
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Get retrieves a member with its current balance.
func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	return s.repo.Get(ctx, id)
}
