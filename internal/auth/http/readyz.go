package http

import (
	"context"
	"net/http"
	"time"

	"github.com/plus1250/jobatrend/pkg/authsdk"
	"github.com/plus1250/jobatrend/pkg/httpx"
	"github.com/plus1250/jobatrend/pkg/jwtx"
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readyzTimeout bounds each probe so a hung store cannot hang the endpoint.
const readyzTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the user database, the refresh record store and the signing key.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	db Pinger,
	refresh Pinger,
	signer jwtx.Signer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database:     probe(r.Context(), db),
			RefreshStore: probe(r.Context(), refresh),
			Signer:       "ok",
		}
		if signer == nil {
			checks.Signer = "error: no signing key loaded"
		} else if err := signer.Validate(); err != nil {
			checks.Signer = "error: " + err.Error()
		}

		status, code := "ok", http.StatusOK
		for _, c := range []string{checks.Database, checks.RefreshStore, checks.Signer} {
			if c != "ok" {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

func probe(ctx context.Context, p Pinger) string {
	ctx, cancel := context.WithTimeout(ctx, readyzTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
