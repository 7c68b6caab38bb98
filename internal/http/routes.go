package httpx

import (
	"compress/gzip"
	"errors"
	"log/slog"
	"net/http"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Simulations SimulationService
	Scenarios   ScenarioService
	Catalog     CatalogService
	Owner       OwnerOptions
	// Checks are run by GET /readyz; the map key names the dependency.
	Checks       map[string]HealthCheck
	MaxBodyBytes int64
	// CompressMinBytes is the smallest response body worth gzipping.
	CompressMinBytes int
	Logger           *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	sims := &SimulationHandlers{Svc: services.Simulations, Logger: logger}
	api := chain(RequireOwner(services.Owner), MaxBody(services.MaxBodyBytes))

	registerCRUD(mux, crudRoutes{
		Base:       "/api/simulations",
		Create:     sims.Create,
		List:       sims.List,
		GetByID:    sims.Get,
		Update:     sims.Update,
		Delete:     sims.Delete,
		Middleware: api,
	})
	mux.Handle("POST /api/simulations/{id}/run", api(http.HandlerFunc(sims.Run)))
	mux.Handle("POST /api/simulations/{id}/stop", api(http.HandlerFunc(sims.Stop)))
	mux.Handle("GET /api/simulations/stats", api(http.HandlerFunc(sims.Stats)))
	registerResultRoutes(mux, &ResultHandlers{Sims: sims}, api)
	if services.Scenarios != nil {
		registerScenarioRoutes(mux, &ScenarioHandlers{Svc: services.Scenarios, Logger: logger}, api)
	}
	if services.Catalog != nil {
		registerModelRoutes(mux, &ModelHandlers{Svc: services.Catalog, Logger: logger}, api)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Checks))
	mux.Handle("/", http.HandlerFunc(notFound))

	return chain(
		RequestID(),
		Recover(logger),
		Logging(logger),
		Compression(CompressionConfig{Level: gzip.DefaultCompression, MinSize: services.CompressMinBytes, Logger: logger}),
	)(mux)
}

func registerResultRoutes(mux *http.ServeMux, h *ResultHandlers, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /api/results/{id}", mw(http.HandlerFunc(h.Get)))
	mux.Handle("GET /api/results/{id}/summary", mw(http.HandlerFunc(h.Summary)))
	mux.Handle("GET /api/results/{id}/export/{format}", mw(http.HandlerFunc(h.Export)))
}

func registerScenarioRoutes(mux *http.ServeMux, h *ScenarioHandlers, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /api/simulations/{id}/scenarios", mw(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/simulations/{id}/scenarios", mw(http.HandlerFunc(h.Create)))
	mux.Handle("DELETE /api/simulations/{id}/scenarios/{scenarioID}", mw(http.HandlerFunc(h.Delete)))
}

func registerModelRoutes(mux *http.ServeMux, h *ModelHandlers, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /api/models/parameters/{model_type}", mw(http.HandlerFunc(h.Parameters)))
	mux.Handle("GET /api/models/capabilities", mw(http.HandlerFunc(h.Capabilities)))
	mux.Handle("GET /api/models/configurations", mw(http.HandlerFunc(h.ListConfigurations)))
	mux.Handle("POST /api/models/configurations", mw(http.HandlerFunc(h.CreateConfiguration)))
	mux.Handle("DELETE /api/models/configurations/{id}", mw(http.HandlerFunc(h.DeleteConfiguration)))
}

// chain composes middlewares; the first one is outermost.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// notFound answers unmatched routes with the JSON error body.
func notFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrorParams{
		Code:    http.StatusNotFound,
		ErrCode: "not_found",
		Err:     errors.New("route not found"),
	})
}

// crudRoutes describes standard CRUD routes for a resource base path.
type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

// registerCRUD registers standard CRUD routes for a resource base path, applying mw if non-nil.
func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}
