package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyAuthority the caller must hold at least one of the provided
// authorities, e.g. "ROLE_USER".
func RequireAnyAuthority(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, s := range required {
		want[s] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, a := range authoritiesFromCtx(r.Context()) {
				if _, ok := want[a]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeForbidden(w, required...)
		})
	}
}

func writeForbidden(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "requires one of: " + strings.Join(required, ", "),
	})
}
