package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/category"
	"github.com/dialforge/campaign-api/internal/export"
	"github.com/dialforge/campaign-api/internal/metrics"
	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

const maxLookupUpload = 5 << 20 // 5 MiB
const maxLookupNumbers = 10000

// LookupHandler resolves an uploaded list of numbers to their call sessions.
// Sessions are reconstructed by time-window grouping here, because uploaded
// lists predate the platform's call-id tagging.
type LookupHandler struct {
	store  storage.Store
	window time.Duration
	logger zerolog.Logger
}

// NewLookupHandler creates a new LookupHandler
func NewLookupHandler(store storage.Store, window time.Duration, logger zerolog.Logger) *LookupHandler {
	return &LookupHandler{
		store:  store,
		window: window,
		logger: logger.With().Str("component", "lookup_handler").Logger(),
	}
}

// LookupResult is the session outcome for one uploaded number: the most
// recent session's summary plus its full stage detail.
type LookupResult struct {
	Number         string     `json:"number"`
	Found          bool       `json:"found"`
	Category       string     `json:"category,omitempty"`
	Transferred    bool       `json:"transferred"`
	FinalStage     int        `json:"finalStage"`
	TotalStages    int        `json:"totalStages"`
	TotalSessions  int        `json:"totalSessions"`
	FirstTimestamp time.Time  `json:"firstTimestamp,omitempty"`
	LastTimestamp  time.Time  `json:"lastTimestamp,omitempty"`
	Stages         []StageRow `json:"stages,omitempty"`
}

// Lookup accepts a CSV of numbers and reports each number's most recent
// session under the client mapping
// POST /api/v1/campaigns/{campaignID}/call-lookup?format=json|csv
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	campaignID, err := strconv.ParseInt(chi.URLParam(r, "campaignID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	scope, err := resolveScope(r.Context(), h.store, claims)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve scope")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if _, err := authorizeCampaign(r.Context(), h.store, scope, campaignID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	numbers, err := h.parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(numbers) == 0 {
		writeError(w, http.StatusBadRequest, "no numbers found in upload")
		return
	}

	records, err := h.store.ListCallStages(r.Context(), storage.CallFilter{
		CampaignIDs: []int64{campaignID},
		Numbers:     numbers,
	})
	if err != nil {
		metrics.Get().RecordQueryError()
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load call stages")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	metrics.Get().RecordCallStageQuery(len(records))

	results := h.resolve(numbers, records)

	if r.URL.Query().Get("format") == "csv" {
		h.writeCSV(w, results)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// parseUpload reads the multipart CSV and returns the distinct normalized
// numbers, preserving upload order.
func (h *LookupHandler) parseUpload(r *http.Request) ([]string, error) {
	if err := r.ParseMultipartForm(maxLookupUpload); err != nil {
		return nil, fmt.Errorf("invalid multipart upload")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file field is required")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var numbers []string
	seen := make(map[string]bool)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %v", err)
		}
		if len(row) == 0 {
			continue
		}
		number := normalizeNumber(row[0])
		// Skips header rows and junk cells.
		if number == "" || seen[number] {
			continue
		}
		seen[number] = true
		numbers = append(numbers, number)
		if len(numbers) > maxLookupNumbers {
			return nil, fmt.Errorf("too many numbers, limit is %d", maxLookupNumbers)
		}
	}
	return numbers, nil
}

// normalizeNumber strips everything but digits, keeping a leading plus.
func normalizeNumber(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "+" {
		return ""
	}
	return out
}

// resolve groups the loaded stages into windowed sessions and reports, per
// uploaded number, its most recent session.
func (h *LookupHandler) resolve(numbers []string, records []types.CallStageRecord) []LookupResult {
	m := category.ClientMapping()

	type summary struct {
		latest   session.Resolved
		sessions int
	}
	byNumber := make(map[string]*summary)

	for _, res := range session.ResolveAll(session.GroupByWindow(records, h.window)) {
		number := res.FinalStage.Number
		s := byNumber[number]
		if s == nil {
			s = &summary{latest: res}
			byNumber[number] = s
		} else if res.LastTimestamp.After(s.latest.LastTimestamp) {
			s.latest = res
		}
		s.sessions++
	}

	results := make([]LookupResult, 0, len(numbers))
	for _, number := range numbers {
		s, ok := byNumber[number]
		if !ok {
			results = append(results, LookupResult{Number: number})
			continue
		}
		final := s.latest.FinalStage
		result := LookupResult{
			Number:         number,
			Found:          true,
			Category:       m.Normalize(final.Category(), final.Transferred),
			Transferred:    final.Transferred,
			FinalStage:     final.StageNumber(),
			TotalStages:    s.latest.TotalStages,
			TotalSessions:  s.sessions,
			FirstTimestamp: s.latest.FirstTimestamp,
			LastTimestamp:  s.latest.LastTimestamp,
		}
		for _, rec := range s.latest.Stages {
			result.Stages = append(result.Stages, StageRow{
				Stage:         rec.StageNumber(),
				Category:      m.Display(rec.Category()),
				Transferred:   rec.Transferred,
				Timestamp:     rec.Timestamp,
				Transcription: rec.Transcription,
			})
		}
		results = append(results, result)
	}
	return results
}

func (h *LookupHandler) writeCSV(w http.ResponseWriter, results []LookupResult) {
	header := []string{"number", "found", "category", "transferred", "final_stage", "total_stages", "total_sessions", "first_timestamp", "last_timestamp"}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		var first, last string
		if res.Found {
			first = res.FirstTimestamp.Format(time.RFC3339)
			last = res.LastTimestamp.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			res.Number,
			strconv.FormatBool(res.Found),
			res.Category,
			strconv.FormatBool(res.Transferred),
			strconv.Itoa(res.FinalStage),
			strconv.Itoa(res.TotalStages),
			strconv.Itoa(res.TotalSessions),
			first,
			last,
		})
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="call_lookup.csv"`)
	if err := export.WriteCSV(w, header, rows); err != nil {
		h.logger.Error().Err(err).Msg("failed to write lookup csv")
	}
}
