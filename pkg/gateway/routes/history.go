package routes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/history"
)

// HistoryLister is satisfied by *history.Repository.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.AssessmentRecord, error)
}

type HistoryHandler struct {
	repo HistoryLister
}

func NewHistoryHandler(repo HistoryLister) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

func (h *HistoryHandler) Register(r *mux.Router) {
	r.HandleFunc("/history", h.handleRecent).Methods(http.MethodGet)
}

func (h *HistoryHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load assessment history")
		http.Error(w, "failed to load assessment history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}
