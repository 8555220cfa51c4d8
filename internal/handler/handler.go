// Package handler содержит HTTP-обработчики API чтения архива тиражей.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/model"
)

const updatedAtLayout = "2006-01-02T15:04:05"

// Service определяет контракт чтения архива, используемый HTTP-обработчиками.
type Service interface {
	Draws(ctx context.Context) ([]model.Draw, error)
}

// Handler реализует HTTP-обработчики API чтения.
type Handler struct {
	service Service
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		now:     time.Now,
	}
}

type drawsResponse struct {
	UpdatedAt string           `json:"updatedAt"`
	Total     int              `json:"total"`
	Draws     []model.DrawJSON `json:"draws"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetDraws возвращает текущее содержимое архива в виде JSON.
func (h *Handler) GetDraws(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Draws(r.Context())
	if err != nil {
		h.logger.Error("load draws error", zap.Error(err))
		writeError(w, http.StatusInternalServerError)
		return
	}

	draws := make([]model.DrawJSON, 0, len(rows))
	for _, d := range rows {
		draws = append(draws, d.JSON())
	}

	writeJSON(w, http.StatusOK, drawsResponse{
		UpdatedAt: h.now().Format(updatedAtLayout),
		Total:     len(draws),
		Draws:     draws,
	})
}

// NotFound отвечает 404 с JSON-телом ошибки.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound)
}

// MethodNotAllowed отвечает 405 с JSON-телом ошибки.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed)
}

func writeError(w http.ResponseWriter, status int) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
