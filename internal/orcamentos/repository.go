package orcamentos

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

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts the quote in PENDENTE. The partial unique index on
// (post_id, prestador_id) over non-terminal statuses enforces the
// one-active-quote invariant; violations surface as pg error 23505.
func (r *Repository) Create(ctx context.Context, o *models.Orcamento) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO orcamentos (id, post_id, prestador_id, cliente_id, valor_centavos, descricao,
			prazo_execucao_dias, condicoes_pagamento, status, data_expiracao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'PENDENTE', $9)
		RETURNING data_criacao
	`, o.ID, o.PostID, o.PrestadorID, o.ClienteID, o.ValorCentavos, o.Descricao,
		o.PrazoExecucaoDias, o.CondicoesPagamento, o.DataExpiracao).Scan(&o.DataCriacao)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Orcamento, error) {
	var o models.Orcamento
	row := r.pool.QueryRow(ctx, `
		SELECT id, post_id, prestador_id, cliente_id, valor_centavos, descricao,
			prazo_execucao_dias, condicoes_pagamento, status, contrapropostas, data_criacao, data_expiracao
		FROM orcamentos WHERE id = $1
	`, id)
	err := row.Scan(&o.ID, &o.PostID, &o.PrestadorID, &o.ClienteID, &o.ValorCentavos, &o.Descricao,
		&o.PrazoExecucaoDias, &o.CondicoesPagamento, &o.Status, &o.Contrapropostas, &o.DataCriacao, &o.DataExpiracao)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) ListByPost(ctx context.Context, postID uuid.UUID) ([]*models.Orcamento, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, prestador_id, cliente_id, valor_centavos, descricao,
			prazo_execucao_dias, condicoes_pagamento, status, contrapropostas, data_criacao, data_expiracao
		FROM orcamentos WHERE post_id = $1 ORDER BY data_criacao DESC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Orcamento
	for rows.Next() {
		var o models.Orcamento
		if err := rows.Scan(&o.ID, &o.PostID, &o.PrestadorID, &o.ClienteID, &o.ValorCentavos, &o.Descricao,
			&o.PrazoExecucaoDias, &o.CondicoesPagamento, &o.Status, &o.Contrapropostas, &o.DataCriacao, &o.DataExpiracao); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// MarcarNegociando moves PENDENTE → NEGOCIANDO. Returns false when the quote
// was no longer PENDENTE (the caller maps that to a conflict).
func (r *Repository) MarcarNegociando(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orcamentos SET status = 'NEGOCIANDO' WHERE id = $1 AND status = 'PENDENTE'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarRespondidoTx closes the quote as ACEITO or REJEITADO within the
// caller's transaction, guarded on the non-terminal statuses.
func (r *Repository) MarcarRespondidoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orcamentos SET status = $1
		WHERE id = $2 AND status IN ('PENDENTE', 'NEGOCIANDO')
	`, status, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarExpirado is the lazy-expiration path: it only fires while the quote is
// still actionable, so a racing accept wins cleanly.
func (r *Repository) MarcarExpirado(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orcamentos SET status = 'EXPIRADO'
		WHERE id = $1 AND status IN ('PENDENTE', 'NEGOCIANDO')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpirarVencidos is the periodic sweep: every actionable quote past its
// expiration timestamp becomes EXPIRADO.
func (r *Repository) ExpirarVencidos(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orcamentos SET status = 'EXPIRADO'
		WHERE status IN ('PENDENTE', 'NEGOCIANDO') AND data_expiracao < now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AtualizarProposta records the latest countered values on the quote and bumps
// the counter-proposal count. Nil keeps the current value.
func (r *Repository) AtualizarProposta(ctx context.Context, id uuid.UUID, valorCentavos *int64, prazoDias *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orcamentos SET
			valor_centavos = COALESCE($1, valor_centavos),
			prazo_execucao_dias = COALESCE($2, prazo_execucao_dias),
			contrapropostas = contrapropostas + 1
		WHERE id = $3
	`, valorCentavos, prazoDias, id)
	return err
}

func (r *Repository) AppendNegociacao(ctx context.Context, n *models.Negociacao) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO negociacoes (id, orcamento_id, tipo, valor_centavos, prazo_dias, descricao, autor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING data_criacao
	`, n.ID, n.OrcamentoID, n.Tipo, n.ValorCentavos, n.PrazoDias, n.Descricao, n.AutorID).Scan(&n.DataCriacao)
}

func (r *Repository) AppendNegociacaoTx(ctx context.Context, tx pgx.Tx, n *models.Negociacao) error {
	return tx.QueryRow(ctx, `
		INSERT INTO negociacoes (id, orcamento_id, tipo, valor_centavos, prazo_dias, descricao, autor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING data_criacao
	`, n.ID, n.OrcamentoID, n.Tipo, n.ValorCentavos, n.PrazoDias, n.Descricao, n.AutorID).Scan(&n.DataCriacao)
}

func (r *Repository) ListNegociacoes(ctx context.Context, orcamentoID uuid.UUID) ([]*models.Negociacao, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, orcamento_id, tipo, valor_centavos, prazo_dias, descricao, autor_id, data_criacao
		FROM negociacoes WHERE orcamento_id = $1 ORDER BY data_criacao ASC
	`, orcamentoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Negociacao
	for rows.Next() {
		var n models.Negociacao
		if err := rows.Scan(&n.ID, &n.OrcamentoID, &n.Tipo, &n.ValorCentavos, &n.PrazoDias, &n.Descricao, &n.AutorID, &n.DataCriacao); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}
