package posts

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// StatusStore is the minimal store interface the projector writes through.
type StatusStore interface {
	AtualizarStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Projector keeps a post's status label synchronized with engagement events.
// It is a read-model concern: a failed projection is logged, never allowed to
// fail the state transition that triggered it.
type Projector struct {
	store StatusStore
	log   *slog.Logger
}

func NewProjector(store StatusStore, log *slog.Logger) *Projector {
	if log == nil {
		log = slog.Default()
	}
	return &Projector{store: store, log: log}
}

// Projetar records the new status label for the post.
func (p *Projector) Projetar(ctx context.Context, postID uuid.UUID, status string) {
	if err := p.store.AtualizarStatus(ctx, postID, status); err != nil {
		p.log.Error("post status projection failed", "post_id", postID, "status", status, "error", err)
	}
}
