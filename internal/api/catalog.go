package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/cache"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

// CatalogHandler serves the response category and voice catalogs. Reads go
// through the catalog cache; voice writes invalidate it.
type CatalogHandler struct {
	store  storage.Store
	cache  *cache.CatalogCache
	logger zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(store storage.Store, cache *cache.CatalogCache, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// ListCategories returns the response category catalog
// GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.cache.Categories()
	if categories == nil {
		var err error
		categories, err = h.store.ListResponseCategories(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to list response categories")
			writeError(w, http.StatusInternalServerError, "failed to list categories")
			return
		}
		if categories == nil {
			categories = []types.ResponseCategory{}
		}
		h.cache.SetCategories(categories)
	}
	writeJSON(w, http.StatusOK, categories)
}

// ListVoices returns the voice catalog
// GET /api/v1/voices
func (h *CatalogHandler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices := h.cache.Voices()
	if voices == nil {
		var err error
		voices, err = h.store.ListVoices(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to list voices")
			writeError(w, http.StatusInternalServerError, "failed to list voices")
			return
		}
		if voices == nil {
			voices = []types.Voice{}
		}
		h.cache.SetVoices(voices)
	}
	writeJSON(w, http.StatusOK, voices)
}

// GetVoice returns one voice by id
// GET /api/v1/voices/{voiceID}
func (h *CatalogHandler) GetVoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "voiceID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid voice id")
		return
	}

	voice, err := h.store.GetVoice(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "voice not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("voice_id", id).Msg("failed to load voice")
		writeError(w, http.StatusInternalServerError, "failed to load voice")
		return
	}
	writeJSON(w, http.StatusOK, voice)
}

type createVoicesRequest struct {
	Names []string `json:"names"`
}

// CreateVoices bulk-creates voices, skipping names that already exist
// POST /api/v1/voices
func (h *CatalogHandler) CreateVoices(w http.ResponseWriter, r *http.Request) {
	var req createVoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var names []string
	for _, name := range req.Names {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "names are required")
		return
	}

	created, err := h.store.CreateVoices(r.Context(), names)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create voices")
		writeError(w, http.StatusInternalServerError, "failed to create voices")
		return
	}
	h.cache.InvalidateVoices()

	if created == nil {
		created = []types.Voice{}
	}
	writeJSON(w, http.StatusCreated, created)
}

type deleteVoicesRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteVoices bulk-deletes voices by id
// DELETE /api/v1/voices
func (h *CatalogHandler) DeleteVoices(w http.ResponseWriter, r *http.Request) {
	var req deleteVoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	deleted, err := h.store.DeleteVoices(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to delete voices")
		writeError(w, http.StatusInternalServerError, "failed to delete voices")
		return
	}
	h.cache.InvalidateVoices()

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
