package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/signlens/internal/store"
)

// HistoryHandler serves recent detection history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type listHistoryResponse struct {
	Entries []*store.HistoryEntry `json:"entries"`
	Count   int                   `json:"count"`
	Total   int                   `json:"total"`
}

// ServeHTTP handles GET /history[?limit=N].
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := store.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.store.History().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	total, err := h.store.History().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count history")
		return
	}

	if entries == nil {
		entries = []*store.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, listHistoryResponse{Entries: entries, Count: len(entries), Total: total})
}
