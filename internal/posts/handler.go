package posts

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

type CriarPostRequest struct {
	Titulo    string `json:"titulo" validate:"required,min=3"`
	Descricao string `json:"descricao"`
	Categoria string `json:"categoria" validate:"required"`
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

// CriarPost handles POST /api/v1/posts.
func (h *Handler) CriarPost(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req CriarPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.svc.CriarPost(r.Context(), u.ID, req.Titulo, req.Descricao, req.Categoria)
	if err != nil {
		h.writeError(w, err, "create post failed")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListarPosts handles GET /api/v1/posts. With ?meus=1 it returns the caller's
// own posts instead of the open marketplace listing.
func (h *Handler) ListarPosts(w http.ResponseWriter, r *http.Request) {
	u := middleware.UsuarioFromCtx(r.Context())
	if u == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var (
		list []*models.Post
		err  error
	)
	if r.URL.Query().Get("meus") == "1" {
		list, err = h.svc.ListarDoCliente(r.Context(), u.ID)
	} else {
		list, err = h.svc.ListarAbertos(r.Context())
	}
	if err != nil {
		h.writeError(w, err, "list posts failed")
		return
	}
	if list == nil {
		list = []*models.Post{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid post id"}`, http.StatusBadRequest)
		return
	}
	p, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get post failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
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
