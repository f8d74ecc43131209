package router

import (
	"net/http"

	"github.com/chamaservico/backend/internal/auth"
	"github.com/chamaservico/backend/internal/contratos"
	"github.com/chamaservico/backend/internal/disputas"
	"github.com/chamaservico/backend/internal/middleware"
	"github.com/chamaservico/backend/internal/models"
	"github.com/chamaservico/backend/internal/orcamentos"
	"github.com/chamaservico/backend/internal/pagamentos"
	"github.com/chamaservico/backend/internal/posts"
)

// New returns an http.Handler serving the API under /api/v1. Everything past
// the auth endpoints requires a bearer token; quote submission additionally
// requires the prestador role and dispute arbitration the moderador role.
func New(
	authSvc auth.Service,
	authHandler *auth.Handler,
	postsHandler *posts.Handler,
	orcamentosHandler *orcamentos.Handler,
	contratosHandler *contratos.Handler,
	pagamentosHandler *pagamentos.Handler,
	disputasHandler *disputas.Handler,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	bearer := middleware.BearerAuth(authSvc)
	prestador := middleware.RequirePapel(models.PapelPrestador)
	moderador := middleware.RequirePapel(models.PapelModerador)

	logged := func(h http.HandlerFunc) http.Handler {
		return bearer(h)
	}

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("POST "+base+"/posts", logged(postsHandler.CriarPost))
	mux.Handle("GET "+base+"/posts", logged(postsHandler.ListarPosts))
	mux.Handle("GET "+base+"/posts/{id}", logged(postsHandler.GetPost))
	mux.Handle("GET "+base+"/posts/{id}/orcamentos", logged(orcamentosHandler.ListarPorPost))

	mux.Handle("POST "+base+"/orcamentos", bearer(prestador(http.HandlerFunc(orcamentosHandler.Submeter))))
	mux.Handle("GET "+base+"/orcamentos/{id}", logged(orcamentosHandler.GetOrcamento))
	mux.Handle("POST "+base+"/orcamentos/{id}/negociar", logged(orcamentosHandler.IniciarNegociacao))
	mux.Handle("POST "+base+"/orcamentos/{id}/contraproposta", logged(orcamentosHandler.Contrapropor))
	mux.Handle("POST "+base+"/orcamentos/{id}/perguntas", logged(orcamentosHandler.Perguntar))
	mux.Handle("POST "+base+"/orcamentos/{id}/responder", logged(orcamentosHandler.Responder))
	mux.Handle("GET "+base+"/orcamentos/{id}/negociacoes", logged(orcamentosHandler.ListarNegociacoes))

	mux.Handle("GET "+base+"/contratos", logged(contratosHandler.ListarContratos))
	mux.Handle("GET "+base+"/contratos/{id}", logged(contratosHandler.GetContrato))
	mux.Handle("POST "+base+"/contratos/{id}/pagar", logged(contratosHandler.Financiar))
	mux.Handle("POST "+base+"/contratos/{id}/iniciar", logged(contratosHandler.Iniciar))
	mux.Handle("POST "+base+"/contratos/{id}/concluir", logged(contratosHandler.Concluir))
	mux.Handle("POST "+base+"/contratos/{id}/confirmar", logged(contratosHandler.Confirmar))
	mux.Handle("POST "+base+"/contratos/{id}/cancelar", logged(contratosHandler.Cancelar))
	mux.Handle("GET "+base+"/contratos/{id}/avaliacoes", logged(contratosHandler.ListarAvaliacoes))
	mux.Handle("GET "+base+"/contratos/{id}/pagamento", logged(pagamentosHandler.GetPorContrato))
	mux.Handle("GET "+base+"/contratos/{id}/disputas", logged(disputasHandler.ListarPorContrato))

	mux.Handle("POST "+base+"/disputas", logged(disputasHandler.Abrir))
	mux.Handle("GET "+base+"/disputas/pendentes", bearer(moderador(http.HandlerFunc(disputasHandler.ListarPendentes))))
	mux.Handle("GET "+base+"/disputas/{id}", logged(disputasHandler.GetDisputa))
	mux.Handle("POST "+base+"/disputas/{id}/analisar", bearer(moderador(http.HandlerFunc(disputasHandler.IniciarAnalise))))
	mux.Handle("POST "+base+"/disputas/{id}/resolver", bearer(moderador(http.HandlerFunc(disputasHandler.Resolver))))
	mux.Handle("POST "+base+"/disputas/{id}/cancelar", logged(disputasHandler.Cancelar))

	return mux
}
