package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/campusconnect/mconnect/pkg/correlationid"
)

func Cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", correlationid.Header},
		ExposedHeaders: []string{correlationid.Header},
		MaxAge:         300,
	})
}
