package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/obs"
	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/pkg/httpx"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/plus1250/jobatrend/pkg/slogx"

	_ "github.com/plus1250/jobatrend/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *obs.Metrics

	store        store.Store
	TokenService *service.TokenService
	UserService  *service.UserService

	// RefreshStore is probed by /readyz. Nil means refresh records live in
	// the user database.
	RefreshStore Pinger
}

func NewRouter(
	signer jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		metrics:      metrics,
	}

	// Instrument sits closest to the mux so it sees the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	if metrics != nil {
		r.middlewares = append(r.middlewares, metrics.Instrument)
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						jobatrend Auth Service API
//	@version					0.1.0
//	@description				Email/password login with rotating refresh tokens. Access and refresh tokens are JWTs signed with HS256 or EdDSA.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies the bearer access token through the token service.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(httpx.AccessValidatorFunc(
		func(ctx context.Context, token string) (httpx.Identity, error) {
			id, err := r.TokenService.ValidateAccess(ctx, token)
			if err != nil {
				return httpx.Identity{}, err
			}
			return httpx.Identity{Subject: id.Subject, Authorities: id.Authorities}, nil
		},
	))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{TokenService: r.TokenService}

	// POST /login - strict, keyed by IP and email to slow password guessing
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// POST /reissue - strict by IP
	r.Mux.Handle("POST /v1/auth/reissue",
		httpx.Chain(http.HandlerFunc(h.HandleReissue),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /logout - moderate by subject
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// Public signup - strict by IP
	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/nickname-check",
		httpx.Chain(http.HandlerFunc(h.HandleNicknameCheck),
			httpx.RateLimitByIPAndJSONField(httpx.ModerateLimit, "email"),
		),
	)

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			r.authn(),
			httpx.RequireAnyAuthority(domain.DefaultAuthority),
			httpx.RateLimitBySubject(limit),
		)
	}

	r.Mux.Handle("GET /v1/users/me", secured(h.HandleMe, httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/users/me/nickname", secured(h.HandleNickname, httpx.ModerateLimit))
	// Password checks are brute-forceable, keep them strict.
	r.Mux.Handle("PUT /v1/users/me/password", secured(h.HandlePassword, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/users/me", secured(h.HandleDelete, httpx.StrictLimit))
}

func (r *Router) registerSystem() {
	refresh := r.RefreshStore
	if refresh == nil {
		refresh = r.store
	}

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, refresh, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(r.metrics.Handler(),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}
