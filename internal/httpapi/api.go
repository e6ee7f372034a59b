package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/obs"
	"github.com/devflow-project/devflow/internal/workspace"
)

// ReadyProbe — readiness check backed by a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP layer over the session manager, workspace service and
// access guard.
type API struct {
	mux        *http.ServeMux
	sessions   *auth.Service
	workspaces *workspace.Service
	guard      *auth.Guard
	readyProbe ReadyProbe
	version    string

	cookieSecure bool
	rateBurst    int
	ratePerSec   int
}

// Option configures the API.
type Option func(*API)

// WithSecureCookies marks the refresh cookie Secure. On in production,
// off for plain-HTTP development.
func WithSecureCookies(secure bool) Option {
	return func(a *API) { a.cookieSecure = secure }
}

// WithRateLimit overrides the default per-IP token bucket.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

// New wires all routes.
func New(sessions *auth.Service, workspaces *workspace.Service, guard *auth.Guard, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		sessions:   sessions,
		workspaces: workspaces,
		guard:      guard,
		readyProbe: rp,
		version:    version,
		rateBurst:  50,
		ratePerSec: 25,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// workspaces and everything nested under them
	a.mux.HandleFunc("/v1/workspaces", a.handleWorkspaces)
	a.mux.HandleFunc("/v1/workspaces/", a.handleWorkspaceScoped)

	// root — 404
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the complete middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "devflow-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "devflow-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
