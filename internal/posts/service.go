package posts

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
)

type Service interface {
	CriarPost(ctx context.Context, clienteID uuid.UUID, titulo, descricao, categoria string) (*models.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListarAbertos(ctx context.Context) ([]*models.Post, error)
	ListarDoCliente(ctx context.Context, clienteID uuid.UUID) ([]*models.Post, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) CriarPost(ctx context.Context, clienteID uuid.UUID, titulo, descricao, categoria string) (*models.Post, error) {
	titulo = strings.TrimSpace(titulo)
	if titulo == "" {
		return nil, apperr.Validation("titulo is required")
	}
	return s.repo.Create(ctx, clienteID, titulo, descricao, strings.ToLower(strings.TrimSpace(categoria)))
}

func (s *service) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("post %s not found", id)
	}
	return p, nil
}

func (s *service) ListarAbertos(ctx context.Context) ([]*models.Post, error) {
	return s.repo.ListAbertos(ctx)
}

func (s *service) ListarDoCliente(ctx context.Context, clienteID uuid.UUID) ([]*models.Post, error) {
	return s.repo.ListByCliente(ctx, clienteID)
}
