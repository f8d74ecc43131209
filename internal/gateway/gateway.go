// Package gateway isolates the external payment provider behind a capability
// interface so the escrow state machine stays gateway-agnostic.
package gateway

import (
	"context"

	"github.com/google/uuid"
)

// Gateway abstracts the payment provider used to fund a contract and to
// return funds to the client on refund.
type Gateway interface {
	// Cobrar charges the client for the contract value and returns the
	// provider's transaction id.
	Cobrar(ctx context.Context, contratoID uuid.UUID, valorCentavos int64, descricao string) (transacaoID string, err error)
	// Estornar returns a previously collected charge to the client.
	Estornar(ctx context.Context, transacaoID string, valorCentavos int64) error
}
