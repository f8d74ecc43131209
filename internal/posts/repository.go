package posts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamaservico/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, clienteID uuid.UUID, titulo, descricao, categoria string) (*models.Post, error) {
	var p models.Post
	row := r.pool.QueryRow(ctx, `
		INSERT INTO posts (cliente_id, titulo, descricao, categoria, status)
		VALUES ($1, $2, $3, $4, 'ABERTO')
		RETURNING id, status, created_at, updated_at
	`, clienteID, titulo, descricao, categoria)
	if err := row.Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ClienteID = clienteID
	p.Titulo = titulo
	p.Descricao = descricao
	p.Categoria = categoria
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	row := r.pool.QueryRow(ctx, `
		SELECT id, cliente_id, titulo, descricao, categoria, status, created_at, updated_at
		FROM posts WHERE id = $1
	`, id)
	err := row.Scan(&p.ID, &p.ClienteID, &p.Titulo, &p.Descricao, &p.Categoria, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListAbertos(ctx context.Context) ([]*models.Post, error) {
	return r.list(ctx, `
		SELECT id, cliente_id, titulo, descricao, categoria, status, created_at, updated_at
		FROM posts WHERE status = 'ABERTO' ORDER BY created_at DESC
	`)
}

func (r *Repository) ListByCliente(ctx context.Context, clienteID uuid.UUID) ([]*models.Post, error) {
	return r.list(ctx, `
		SELECT id, cliente_id, titulo, descricao, categoria, status, created_at, updated_at
		FROM posts WHERE cliente_id = $1 ORDER BY created_at DESC
	`, clienteID)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.ClienteID, &p.Titulo, &p.Descricao, &p.Categoria, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// AtualizarStatus overwrites the post's status label. The projector is the
// only caller; post status carries no invariants of its own.
func (r *Repository) AtualizarStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}
