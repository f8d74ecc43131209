package orcamentos

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

type SubmeterRequest struct {
	PostID             string `json:"post_id" validate:"required,uuid"`
	ValorCentavos      int64  `json:"valor_centavos" validate:"required,gt=0"`
	PrazoExecucaoDias  int    `json:"prazo_execucao_dias" validate:"required,gt=0"`
	CondicoesPagamento string `json:"condicoes_pagamento"`
	Descricao          string `json:"descricao"`
}

type ContraproporRequest struct {
	ValorCentavos *int64 `json:"valor_centavos,omitempty" validate:"omitempty,gt=0"`
	PrazoDias     *int   `json:"prazo_dias,omitempty" validate:"omitempty,gt=0"`
	Descricao     string `json:"descricao"`
}

type PerguntarRequest struct {
	Descricao string `json:"descricao" validate:"required"`
}

type ResponderRequest struct {
	Decisao string `json:"decisao" validate:"required,oneof=ACEITO REJEITADO"`
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

// Submeter handles POST /api/v1/orcamentos (papel prestador).
func (h *Handler) Submeter(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req SubmeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	postID, _ := uuid.Parse(req.PostID)
	o, err := h.svc.Submeter(r.Context(), u.ID, postID, req.ValorCentavos, req.PrazoExecucaoDias, req.CondicoesPagamento, req.Descricao)
	if err != nil {
		h.writeError(w, err, "submit quote failed")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// IniciarNegociacao handles POST /api/v1/orcamentos/{id}/negociar.
func (h *Handler) IniciarNegociacao(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.IniciarNegociacao(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "start negotiation failed")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Contrapropor handles POST /api/v1/orcamentos/{id}/contraproposta.
func (h *Handler) Contrapropor(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req ContraproporRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	n, err := h.svc.Contrapropor(r.Context(), id, u.ID, req.ValorCentavos, req.PrazoDias, req.Descricao)
	if err != nil {
		h.writeError(w, err, "counter-proposal failed")
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Perguntar handles POST /api/v1/orcamentos/{id}/perguntas.
func (h *Handler) Perguntar(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req PerguntarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	n, err := h.svc.Perguntar(r.Context(), id, u.ID, req.Descricao)
	if err != nil {
		h.writeError(w, err, "question failed")
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Responder handles POST /api/v1/orcamentos/{id}/responder.
func (h *Handler) Responder(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req ResponderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.svc.Responder(r.Context(), id, u.ID, req.Decisao)
	if err != nil {
		h.writeError(w, err, "respond to quote failed")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GetOrcamento handles GET /api/v1/orcamentos/{id}.
func (h *Handler) GetOrcamento(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.GetOrcamento(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "get quote failed")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListarPorPost handles GET /api/v1/posts/{id}/orcamentos.
func (h *Handler) ListarPorPost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid post id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListarPorPost(r.Context(), postID)
	if err != nil {
		h.writeError(w, err, "list quotes failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListarNegociacoes handles GET /api/v1/orcamentos/{id}/negociacoes.
func (h *Handler) ListarNegociacoes(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListarNegociacoes(r.Context(), id, u.ID)
	if err != nil {
		h.writeError(w, err, "list negotiation thread failed")
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
		http.Error(w, `{"error":"invalid quote id"}`, http.StatusBadRequest)
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
