package contratos

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/middleware"
	"github.com/chamaservico/backend/internal/models"
)

var validate = validator.New()

type IniciarRequest struct {
	FotosAntes []string `json:"fotos_antes,omitempty" validate:"omitempty,dive,url"`
}

type ConcluirRequest struct {
	FotosDepois []string `json:"fotos_depois,omitempty" validate:"omitempty,dive,url"`
}

type ConfirmarRequest struct {
	Nota       int    `json:"nota,omitempty" validate:"omitempty,min=1,max=5"`
	Comentario string `json:"comentario,omitempty"`
}

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

// GetContrato handles GET /api/v1/contratos/{id}.
func (h *Handler) GetContrato(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetContrato(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "get contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListarContratos handles GET /api/v1/contratos.
func (h *Handler) ListarContratos(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListarDoUsuario(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, err, "list contracts failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Financiar handles POST /api/v1/contratos/{id}/pagar. Retried by the client
// when the gateway charge failed at acceptance time.
func (h *Handler) Financiar(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Financiar(r.Context(), id); err != nil {
		h.writeError(w, err, "fund contract failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "PAGO"})
}

// Iniciar handles POST /api/v1/contratos/{id}/iniciar.
func (h *Handler) Iniciar(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req IniciarRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	c, err := h.svc.Iniciar(r.Context(), id, u.ID, req.FotosAntes)
	if err != nil {
		h.writeError(w, err, "start contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Concluir handles POST /api/v1/contratos/{id}/concluir.
func (h *Handler) Concluir(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req ConcluirRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	c, err := h.svc.Concluir(r.Context(), id, u.ID, req.FotosDepois)
	if err != nil {
		h.writeError(w, err, "complete contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Confirmar handles POST /api/v1/contratos/{id}/confirmar.
func (h *Handler) Confirmar(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req ConfirmarRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	c, err := h.svc.ConfirmarConclusao(r.Context(), id, u.ID, req.Nota, req.Comentario)
	if err != nil {
		h.writeError(w, err, "confirm completion failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Cancelar handles POST /api/v1/contratos/{id}/cancelar.
func (h *Handler) Cancelar(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Cancelar(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "cancel contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListarAvaliacoes handles GET /api/v1/contratos/{id}/avaliacoes.
func (h *Handler) ListarAvaliacoes(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListarAvaliacoes(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "list ratings failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) authAndID(w http.ResponseWriter, r *http.Request) (*models.Usuario, uuid.UUID, bool) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid contract id"}`, http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return u, id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(fallback, "error", err)
		writeJSON(w, status, map[string]string{"error": fallback})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
