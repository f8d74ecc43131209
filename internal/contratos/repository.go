package contratos

import (
	"context"
	"time"

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

func (r *Repository) CriarTx(ctx context.Context, tx pgx.Tx, c *models.Contrato) error {
	return tx.QueryRow(ctx, `
		INSERT INTO contratos (id, post_id, orcamento_id, cliente_id, prestador_id, valor_centavos, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'ATIVO')
		RETURNING created_at, updated_at
	`, c.ID, c.PostID, c.OrcamentoID, c.ClienteID, c.PrestadorID, c.ValorCentavos).Scan(&c.CreatedAt, &c.UpdatedAt)
}

const contratoColumns = `id, post_id, orcamento_id, cliente_id, prestador_id, valor_centavos, status,
	data_inicio, data_fim, quem_iniciou, quem_finalizou, fotos_antes, fotos_depois,
	aguardando_liberacao, data_liberacao_prevista, created_at, updated_at`

func scanContrato(row pgx.Row) (*models.Contrato, error) {
	var c models.Contrato
	err := row.Scan(&c.ID, &c.PostID, &c.OrcamentoID, &c.ClienteID, &c.PrestadorID, &c.ValorCentavos, &c.Status,
		&c.DataInicio, &c.DataFim, &c.QuemIniciou, &c.QuemFinalizou, &c.FotosAntes, &c.FotosDepois,
		&c.AguardandoLiberacao, &c.DataLiberacaoPrevista, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contrato, error) {
	return scanContrato(r.pool.QueryRow(ctx, `
		SELECT `+contratoColumns+` FROM contratos WHERE id = $1
	`, id))
}

// ListarPorUsuario returns the contracts the account is a party to, newest
// first.
func (r *Repository) ListarPorUsuario(ctx context.Context, usuarioID uuid.UUID) ([]*models.Contrato, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contratoColumns+` FROM contratos
		WHERE cliente_id = $1 OR prestador_id = $1
		ORDER BY created_at DESC
	`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Contrato
	for rows.Next() {
		c, err := scanContrato(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// MarcarIniciado moves ATIVO → EM_EXECUCAO exactly once: the data_inicio guard
// makes a second start a no-op the service reports as a conflict.
func (r *Repository) MarcarIniciado(ctx context.Context, id uuid.UUID, quem string, fotosAntes []string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contratos SET status = 'EM_EXECUCAO', data_inicio = now(), quem_iniciou = $2,
			fotos_antes = $3, updated_at = now()
		WHERE id = $1 AND status = 'ATIVO' AND data_inicio IS NULL
	`, id, quem, fotosAntes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarConcluidoTx closes the execution within the caller's transaction,
// recording who finalized for the release rule.
func (r *Repository) MarcarConcluidoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, quem string, fotosDepois []string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE contratos SET status = 'CONCLUIDO', data_fim = now(), quem_finalizou = $2,
			fotos_depois = $3, updated_at = now()
		WHERE id = $1 AND status = 'EM_EXECUCAO'
	`, id, quem, fotosDepois)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarAguardandoLiberacaoTx stamps the deferred-release window on the
// contract, in the completion transaction.
func (r *Repository) MarcarAguardandoLiberacaoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, prevista time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE contratos SET aguardando_liberacao = true, data_liberacao_prevista = $2, updated_at = now()
		WHERE id = $1
	`, id, prevista)
	return err
}

// MarcarCancelado ends the contract before or during execution.
func (r *Repository) MarcarCancelado(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contratos SET status = 'CANCELADO', data_fim = now(), updated_at = now()
		WHERE id = $1 AND status IN ('ATIVO', 'EM_EXECUCAO')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InserirAvaliacao records the rating left on confirmation. One per author per
// contract, enforced by a unique index.
func (r *Repository) InserirAvaliacao(ctx context.Context, a *models.Avaliacao) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO avaliacoes (id, contrato_id, autor_id, avaliado_id, nota, comentario)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING data_criacao
	`, a.ID, a.ContratoID, a.AutorID, a.AvaliadoID, a.Nota, a.Comentario).Scan(&a.DataCriacao)
}

// ListarAvaliacoes returns the ratings left on a contract.
func (r *Repository) ListarAvaliacoes(ctx context.Context, contratoID uuid.UUID) ([]*models.Avaliacao, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contrato_id, autor_id, avaliado_id, nota, comentario, data_criacao
		FROM avaliacoes WHERE contrato_id = $1 ORDER BY data_criacao
	`, contratoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Avaliacao
	for rows.Next() {
		var a models.Avaliacao
		if err := rows.Scan(&a.ID, &a.ContratoID, &a.AutorID, &a.AvaliadoID, &a.Nota, &a.Comentario, &a.DataCriacao); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
