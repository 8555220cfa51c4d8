package handler

import (
	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/marksix/internal/middleware"
)

// DrawsPath путь API чтения архива.
const DrawsPath = "/api/marksix"

// SetupRouter настраивает HTTP-маршруты и middleware API чтения.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.CORS())
	r.Use(custommiddleware.GzipMiddleware)

	r.Get(DrawsPath, h.GetDraws)
	r.Get(DrawsPath+"/*", h.GetDraws)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
