package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/docs"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
}

type AccountHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	GetSelf(w http.ResponseWriter, r *http.Request)
	UpdateSelf(w http.ResponseWriter, r *http.Request)
	ResendVerification(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health  HealthHandler
	Account AccountHandler

	// APIVersion is the only accepted value of the {version} path segment, e.g. "v1".
	APIVersion string
	// MaxBodyBytes caps request bodies on the account routes; 0 disables the cap.
	MaxBodyBytes int64
	// Metrics serves /metrics; defaults to the Prometheus default registry.
	Metrics http.Handler
	// Docs serves /openapi.yaml; defaults to the embedded document.
	Docs http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Account == nil {
		return nil, fmt.Errorf("nil Account handler")
	}
	if deps.APIVersion == "" {
		return nil, fmt.Errorf("empty API version")
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	if deps.Docs == nil {
		deps.Docs = docs.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// every method reaches the guard so it can answer 405 itself
	r.With(middleware.HealthGuard).HandleFunc("/healthz", deps.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", deps.Metrics)
	r.Method(http.MethodGet, "/openapi.yaml", deps.Docs)

	r.With(middleware.BodyLimit(deps.MaxBodyBytes)).Get("/verify", deps.Account.Verify)

	r.Route("/{version}", func(r chi.Router) {
		r.Use(requireVersion(deps.APIVersion))
		r.Use(middleware.BodyLimit(deps.MaxBodyBytes))

		r.Post("/user", deps.Account.Create)
		r.Get("/user/self", deps.Account.GetSelf)
		r.Put("/user/self", deps.Account.UpdateSelf)
		r.Post("/user/self/verification", deps.Account.ResendVerification)
	})

	return r, nil
}

// requireVersion answers 404 for any {version} other than want.
func requireVersion(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "version") != want {
				notFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.WriteError(w, r, domain.New(domain.KindNotFound, "route_not_found", "route not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.WriteErrorStatus(w, r,
		domain.New(domain.KindValidation, "method_not_allowed", "method not allowed"),
		http.StatusMethodNotAllowed)
}
