package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bristolhackspace/induction/internal/auth"
	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
	"github.com/bristolhackspace/induction/internal/induction"
	"github.com/bristolhackspace/induction/internal/questionnaire"
)

type Deps struct {
	Service  *induction.Service
	Sessions *authmw.AuthService
	SSO      *auth.SSO
	Log      *slog.Logger

	CORSOrigins        []string
	PrecheckMembership bool
	RequestTimeout     time.Duration
	// Optional: Shuffler fixes the display order (tests).
	Shuffler questionnaire.Shuffler
}

// NewRouter mounts the portal routes.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Service == nil || d.Sessions == nil || d.SSO == nil {
		return nil, errors.New("router: service, sessions and sso are required")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	h := &inductionHandlers{
		svc:      d.Service,
		views:    v,
		log:      d.Log,
		shuffler: d.Shuffler,
		precheck: d.PrecheckMembership,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(middleware.RequestLogger(slogFormatter{log: d.Log}), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(authmw.Session(d.Sessions))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Get("/sso/callback", d.SSO.CallbackHandler())
	r.Post("/logout", d.SSO.LogoutHandler())

	r.Get("/", h.Index)
	r.With(authmw.RequireLogin(d.SSO.Login)).Get("/{name}", h.View)
	r.Post("/{name}/validate", h.Validate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "Page not found.")
	})
	return r, nil
}
