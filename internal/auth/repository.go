package auth

import (
	"context"

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

// Create inserts a new account and returns the created Usuario.
func (r *Repository) Create(ctx context.Context, email, senhaHash, nome, papel string) (*models.Usuario, error) {
	var u models.Usuario
	row := r.pool.QueryRow(ctx, `
		INSERT INTO usuarios (email, senha_hash, nome, papel)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, email, senhaHash, nome, papel)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email = email
	u.Nome = nome
	u.Papel = papel
	return &u, nil
}

// GetByEmail returns the account for login, including the password hash.
// Returns nil when the email is unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	var u models.Usuario
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, nome, papel, senha_hash, created_at, updated_at
		FROM usuarios WHERE email = $1
	`, email)
	err := row.Scan(&u.ID, &u.Email, &u.Nome, &u.Papel, &u.SenhaHash, &u.CreatedAt, &u.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
