package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

// MercadoPago implements Gateway against the Mercado Pago SDK. With
// MERCADOPAGO_MOCK (or PAYMENT_GATEWAY_MOCK) set, charges and refunds are
// simulated locally so the lifecycle can run without provider credentials.
type MercadoPago struct {
	payments payment.Client
	refunds  refund.Client
	mockMode bool
	log      *slog.Logger
}

func NewMercadoPago(accessToken string, log *slog.Logger) (*MercadoPago, error) {
	if log == nil {
		log = slog.Default()
	}
	if mockEnabled() {
		log.Info("payment gateway in mock mode")
		return &MercadoPago{mockMode: true, log: log}, nil
	}
	if accessToken == "" {
		return nil, ErrMissingMercadoPagoAccessToken
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, err
	}
	return &MercadoPago{
		payments: payment.NewClient(cfg),
		refunds:  refund.NewClient(cfg),
		log:      log,
	}, nil
}

var _ Gateway = (*MercadoPago)(nil)

func (g *MercadoPago) Cobrar(ctx context.Context, contratoID uuid.UUID, valorCentavos int64, descricao string) (string, error) {
	if g.mockMode {
		id := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		g.log.Info("mock charge approved", "contrato_id", contratoID, "valor_centavos", valorCentavos, "transacao_id", id)
		return id, nil
	}
	resp, err := g.payments.Create(ctx, payment.Request{
		TransactionAmount: float64(valorCentavos) / 100,
		Description:       descricao,
		ExternalReference: contratoID.String(),
	})
	if err != nil {
		return "", err
	}
	if resp.Status != "approved" {
		return "", fmt.Errorf("payment not approved: status %s", resp.Status)
	}
	return strconv.Itoa(resp.ID), nil
}

func (g *MercadoPago) Estornar(ctx context.Context, transacaoID string, valorCentavos int64) error {
	if g.mockMode {
		g.log.Info("mock refund", "transacao_id", transacaoID, "valor_centavos", valorCentavos)
		return nil
	}
	paymentID, err := strconv.Atoi(transacaoID)
	if err != nil {
		return fmt.Errorf("invalid transacao id %q: %w", transacaoID, err)
	}
	_, err = g.refunds.Create(ctx, paymentID)
	return err
}

func mockEnabled() bool {
	for _, key := range []string{"PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		switch v {
		case "1", "true", "yes", "on", "mock":
			return true
		}
	}
	return false
}
