package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/category"
	"github.com/dialforge/campaign-api/internal/export"
	"github.com/dialforge/campaign-api/internal/metrics"
	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/storage"
)

// ExportHandler streams a campaign's resolved sessions as a CSV or XLSX
// download.
type ExportHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(store storage.Store, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		store:  store,
		logger: logger.With().Str("component", "export_handler").Logger(),
	}
}

var exportHeader = []string{
	"number", "category", "transferred", "voice", "final_stage",
	"total_stages", "first_timestamp", "last_timestamp", "list_id",
}

// Export downloads the campaign's sessions under the client mapping
// GET /api/v1/campaigns/{campaignID}/export?format=csv|xlsx
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
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

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	scope, err := resolveScope(r.Context(), h.store, claims)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve scope")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if _, err := authorizeCampaign(r.Context(), h.store, scope, campaignID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.ListCallStages(r.Context(), storage.CallFilter{
		CampaignIDs: []int64{campaignID},
		StartDate:   start,
		EndDate:     end,
		ListID:      r.URL.Query().Get("list_id"),
	})
	if err != nil {
		metrics.Get().RecordQueryError()
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load call stages")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	metrics.Get().RecordCallStageQuery(len(records))

	m := category.ClientMapping()
	resolved := session.ResolveAll(session.SessionsByCallID(records))
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].LastTimestamp.After(resolved[j].LastTimestamp)
	})

	rows := make([][]string, 0, len(resolved))
	for _, res := range resolved {
		final := res.FinalStage
		raw := final.Category()
		display := m.Normalize(raw, final.Transferred)
		if raw == "" {
			display = "Unknown"
		} else if display == category.Excluded {
			continue
		}
		voice, _ := final.Voice()
		listID := ""
		if final.ListID != nil {
			listID = *final.ListID
		}
		rows = append(rows, []string{
			final.Number,
			display,
			strconv.FormatBool(final.Transferred),
			voice,
			strconv.Itoa(final.StageNumber()),
			strconv.Itoa(res.TotalStages),
			res.FirstTimestamp.Format(time.RFC3339),
			res.LastTimestamp.Format(time.RFC3339),
			listID,
		})
	}

	filename := fmt.Sprintf("campaign_%d_%s.%s", campaignID, uuid.NewString(), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = export.WriteXLSX(w, "Sessions", exportHeader, rows)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, exportHeader, rows)
	}
	if err != nil {
		metrics.Get().RecordExportError()
		h.logger.Error().Err(err).Str("format", format).Msg("failed to write export")
		return
	}
	metrics.Get().RecordExport()
}
