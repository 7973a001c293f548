package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/signlens/internal/store"
)

// VocabularyHandler serves the sign vocabulary.
type VocabularyHandler struct {
	store *store.Store
}

// NewVocabularyHandler creates a new VocabularyHandler with the given store.
func NewVocabularyHandler(s *store.Store) *VocabularyHandler {
	return &VocabularyHandler{store: s}
}

type listVocabularyResponse struct {
	Signs []*store.Sign `json:"signs"`
	Count int           `json:"count"`
}

// ServeHTTP routes /vocabulary and /vocabulary/{class_id}.
func (h *VocabularyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/vocabulary")
	path = strings.Trim(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	classID, err := strconv.Atoi(path)
	if err != nil || classID < 0 {
		writeError(w, http.StatusBadRequest, "Invalid class id")
		return
	}
	h.get(w, classID)
}

// list handles GET /vocabulary[?category=...].
func (h *VocabularyHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Vocabulary().List(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vocabulary")
		return
	}

	if signs == nil {
		signs = []*store.Sign{}
	}
	writeJSON(w, http.StatusOK, listVocabularyResponse{Signs: signs, Count: len(signs)})
}

// get handles GET /vocabulary/{class_id}.
func (h *VocabularyHandler) get(w http.ResponseWriter, classID int) {
	sign, err := h.store.Vocabulary().GetByClassID(classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	writeJSON(w, http.StatusOK, sign)
}
