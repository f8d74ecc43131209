package disputas

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

// Criar inserts the dispute in ABERTA. The partial unique index on contrato_id
// over open statuses enforces one open dispute per contract; violations
// surface as pg error 23505.
func (r *Repository) Criar(ctx context.Context, d *models.Disputa) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO disputas (id, contrato_id, autor_id, tipo, descricao, evidencias, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'ABERTA')
		RETURNING data_criacao
	`, d.ID, d.ContratoID, d.AutorID, d.Tipo, d.Descricao, d.Evidencias).Scan(&d.DataCriacao)
}

const disputaColumns = `id, contrato_id, autor_id, tipo, descricao, evidencias, status,
	decisao, observacoes, moderador_id, data_criacao, data_resolucao`

func scanDisputa(row pgx.Row) (*models.Disputa, error) {
	var d models.Disputa
	err := row.Scan(&d.ID, &d.ContratoID, &d.AutorID, &d.Tipo, &d.Descricao, &d.Evidencias, &d.Status,
		&d.Decisao, &d.Observacoes, &d.ModeradorID, &d.DataCriacao, &d.DataResolucao)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Disputa, error) {
	return scanDisputa(r.pool.QueryRow(ctx, `
		SELECT `+disputaColumns+` FROM disputas WHERE id = $1
	`, id))
}

func (r *Repository) ListarPorContrato(ctx context.Context, contratoID uuid.UUID) ([]*models.Disputa, error) {
	return r.listar(ctx, `
		SELECT `+disputaColumns+` FROM disputas WHERE contrato_id = $1 ORDER BY data_criacao DESC
	`, contratoID)
}

// ListarPendentes is the moderator queue, oldest first.
func (r *Repository) ListarPendentes(ctx context.Context) ([]*models.Disputa, error) {
	return r.listar(ctx, `
		SELECT `+disputaColumns+` FROM disputas
		WHERE status IN ('ABERTA', 'EM_ANALISE') ORDER BY data_criacao
	`)
}

func (r *Repository) listar(ctx context.Context, sql string, args ...any) ([]*models.Disputa, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Disputa
	for rows.Next() {
		d, err := scanDisputa(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// ExisteAberta reports whether the contract has a dispute in ABERTA or
// EM_ANALISE.
func (r *Repository) ExisteAberta(ctx context.Context, contratoID uuid.UUID) (bool, error) {
	var existe bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM disputas WHERE contrato_id = $1 AND status IN ('ABERTA', 'EM_ANALISE')
		)
	`, contratoID).Scan(&existe)
	return existe, err
}

// MarcarEmAnalise assigns the dispute to a moderator, ABERTA → EM_ANALISE.
func (r *Repository) MarcarEmAnalise(ctx context.Context, id, moderadorID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE disputas SET status = 'EM_ANALISE', moderador_id = $2
		WHERE id = $1 AND status = 'ABERTA'
	`, id, moderadorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ResolverTx closes the dispute within the resolution transaction, guarded on
// the open statuses so a racing resolution loses cleanly.
func (r *Repository) ResolverTx(ctx context.Context, tx pgx.Tx, id, moderadorID uuid.UUID, decisao string, observacoes *string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE disputas SET status = 'RESOLVIDA', decisao = $3, observacoes = $4,
			moderador_id = $2, data_resolucao = now()
		WHERE id = $1 AND status IN ('ABERTA', 'EM_ANALISE')
	`, id, moderadorID, decisao, observacoes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarCancelada withdraws the dispute, only while open and only by its
// author.
func (r *Repository) MarcarCancelada(ctx context.Context, id, autorID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE disputas SET status = 'CANCELADA'
		WHERE id = $1 AND autor_id = $2 AND status IN ('ABERTA', 'EM_ANALISE')
	`, id, autorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
