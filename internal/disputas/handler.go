package disputas

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

type AbrirRequest struct {
	ContratoID string   `json:"contrato_id" validate:"required,uuid"`
	Tipo       string   `json:"tipo" validate:"required"`
	Descricao  string   `json:"descricao" validate:"required,min=10"`
	Evidencias []string `json:"evidencias,omitempty"`
}

type ResolverRequest struct {
	Decisao     string  `json:"decisao" validate:"required,oneof=FAVOR_CLIENTE FAVOR_PRESTADOR DIVIDIR CANCELAR"`
	Observacoes *string `json:"observacoes,omitempty"`
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

// Abrir handles POST /api/v1/disputas.
func (h *Handler) Abrir(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req AbrirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	contratoID, _ := uuid.Parse(req.ContratoID)
	d, err := h.svc.Abrir(r.Context(), contratoID, u.ID, req.Tipo, req.Descricao, req.Evidencias)
	if err != nil {
		h.writeError(w, err, "open dispute failed")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// IniciarAnalise handles POST /api/v1/disputas/{id}/analisar (papel moderador).
func (h *Handler) IniciarAnalise(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.IniciarAnalise(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "start review failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Resolver handles POST /api/v1/disputas/{id}/resolver (papel moderador).
func (h *Handler) Resolver(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req ResolverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d, err := h.svc.Resolver(r.Context(), id, u.ID, req.Decisao, req.Observacoes)
	if err != nil {
		h.writeError(w, err, "resolve dispute failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Cancelar handles POST /api/v1/disputas/{id}/cancelar.
func (h *Handler) Cancelar(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Cancelar(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "withdraw dispute failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetDisputa handles GET /api/v1/disputas/{id}.
func (h *Handler) GetDisputa(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDisputa(r.Context(), id, u.ID, u.Papel == models.PapelModerador)
	if err != nil {
		h.writeError(w, err, "get dispute failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListarPorContrato handles GET /api/v1/contratos/{id}/disputas.
func (h *Handler) ListarPorContrato(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListarPorContrato(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "list disputes failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListarPendentes handles GET /api/v1/disputas/pendentes (papel moderador).
func (h *Handler) ListarPendentes(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListarPendentes(r.Context())
	if err != nil {
		h.writeError(w, err, "list pending disputes failed")
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
		http.Error(w, `{"error":"invalid dispute id"}`, http.StatusBadRequest)
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
