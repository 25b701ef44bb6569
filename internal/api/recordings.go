package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecordingsHandler proxies recording downloads to the recording server.
// Audio files never live in this service; the proxy exists so clients only
// ever authenticate against this API.
type RecordingsHandler struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewRecordingsHandler creates a new RecordingsHandler
func NewRecordingsHandler(baseURL string, logger zerolog.Logger) *RecordingsHandler {
	return &RecordingsHandler{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "recordings_handler").Logger(),
	}
}

// Get streams one recording from the recording server
// GET /api/v1/recordings/{recordingID}
func (h *RecordingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	recordingID := chi.URLParam(r, "recordingID")
	if recordingID == "" {
		writeError(w, http.StatusBadRequest, "recording id is required")
		return
	}
	if h.baseURL == "" {
		writeError(w, http.StatusServiceUnavailable, "recording server not configured")
		return
	}

	url := h.baseURL + "/recordings/" + recordingID

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("recording_id", recordingID).Msg("failed to create proxy request")
		writeError(w, http.StatusInternalServerError, "failed to load recording")
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error().Err(err).Str("url", url).Msg("failed to reach recording server")
		writeError(w, http.StatusBadGateway, "recording server unavailable")
		return
	}
	defer resp.Body.Close()

	for _, header := range []string{"Content-Type", "Content-Length", "Content-Disposition", "Accept-Ranges"} {
		if v := resp.Header.Get(header); v != "" {
			w.Header().Set(header, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error().Err(err).Str("recording_id", recordingID).Msg("failed to stream recording")
	}
}
