// Package middleware содержит HTTP middleware для API архива тиражей.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS разрешает чтение API с любого источника.
// Preflight и прочие OPTIONS-запросы завершаются ответом 204 без тела.
func CORS() func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type"},
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
