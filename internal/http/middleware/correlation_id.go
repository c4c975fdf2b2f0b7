package middleware

import (
	"net/http"

	"github.com/campusconnect/mconnect/pkg/correlationid"
)

// CorrelationID propagates the caller's correlation ID, or generates one, and
// echoes it back on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" {
				id = correlationid.New()
			}

			w.Header().Set(correlationid.Header, id)
			r = r.WithContext(correlationid.NewContext(r.Context(), id))

			next.ServeHTTP(w, r)
		})
	}
}
