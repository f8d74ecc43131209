package pagamentos

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/middleware"
)

// Handler exposes the read side of the escrow. Transitions happen through the
// contract and dispute endpoints, never directly.
type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GetPorContrato handles GET /api/v1/contratos/{id}/pagamento.
func (h *Handler) GetPorContrato(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	contratoID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid contract id"}`, http.StatusBadRequest)
		return
	}
	p, err := h.svc.GetPorContrato(r.Context(), contratoID)
	if err != nil {
		status := apperr.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("get payment failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}
