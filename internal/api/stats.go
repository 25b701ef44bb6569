package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/category"
	"github.com/dialforge/campaign-api/internal/metrics"
	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/stats"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

// StatsHandler serves the aggregate statistics endpoints
type StatsHandler struct {
	store  storage.Store
	window time.Duration
	logger zerolog.Logger
}

// NewStatsHandler creates a new StatsHandler. The window is the session
// grouping window used where sessions are reconstructed by time proximity.
func NewStatsHandler(store storage.Store, window time.Duration, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		store:  store,
		window: window,
		logger: logger.With().Str("component", "stats_handler").Logger(),
	}
}

// TransferMetrics grades one campaign's sessions into A/B transfers and
// drop-offs
// GET /api/v1/campaigns/{campaignID}/transfer-metrics
func (h *StatsHandler) TransferMetrics(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusInternalServerError, "failed to compute transfer metrics")
		return
	}
	if _, err := authorizeCampaign(r.Context(), h.store, scope, campaignID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "failed to compute transfer metrics")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	finals, err := h.campaignFinals(r, campaignID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute transfer metrics")
		return
	}

	writeJSON(w, http.StatusOK, stats.ComputeTransferMetrics(finals, category.ClientMapping()))
}

// CategoryTimeseries buckets one campaign's session outcomes over time
// GET /api/v1/campaigns/{campaignID}/category-timeseries
func (h *StatsHandler) CategoryTimeseries(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusInternalServerError, "failed to compute time series")
		return
	}
	if _, err := authorizeCampaign(r.Context(), h.store, scope, campaignID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "failed to compute time series")
		return
	}

	startPtr, endPtr, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Default window: the last seven days.
	end := time.Now().UTC()
	if endPtr != nil {
		end = *endPtr
	}
	start := end.Add(-7 * 24 * time.Hour)
	if startPtr != nil {
		start = *startPtr
	}

	width := 24 * time.Hour
	if s := r.URL.Query().Get("interval_hours"); s != "" {
		hours, err := strconv.Atoi(s)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "interval_hours must be a positive integer")
			return
		}
		width = time.Duration(hours) * time.Hour
	}

	finals, err := h.campaignFinals(r, campaignID, &start, &end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute time series")
		return
	}

	series := stats.CategoryTimeSeries(finals, category.ClientMapping(), start, end, width)
	if series == nil {
		series = []stats.Interval{}
	}
	writeJSON(w, http.StatusOK, series)
}

// campaignFinals loads a campaign's stages and reduces them to session final
// stages using explicit call-id grouping.
func (h *StatsHandler) campaignFinals(r *http.Request, campaignID int64, start, end *time.Time) ([]types.CallStageRecord, error) {
	records, err := h.store.ListCallStages(r.Context(), storage.CallFilter{
		CampaignIDs: []int64{campaignID},
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		metrics.Get().RecordQueryError()
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load call stages")
		return nil, err
	}
	metrics.Get().RecordCallStageQuery(len(records))

	computeStart := time.Now()
	sessions := session.SessionsByCallID(records)
	finals := session.FinalStages(sessions)
	metrics.Get().RecordStatsComputation(time.Since(computeStart), len(sessions))
	return finals, nil
}

// CampaignTransferStats is one campaign's grading summary on the
// all-campaigns overview.
type CampaignTransferStats struct {
	Campaign     types.Campaign        `json:"campaign"`
	Metrics      stats.TransferMetrics `json:"metrics"`
	Stats        stats.AggregateStats  `json:"stats"`
	TransferRate float64               `json:"transferRate"`
}

// AllCampaignsTransferStats computes transfer grades for every non-archived
// campaign, each measured since the campaign last became active. Session
// grouping is pushed into the database here because this endpoint scans
// every campaign's stages at once.
// GET /api/v1/stats/campaigns
func (h *StatsHandler) AllCampaignsTransferStats(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list campaigns")
		writeError(w, http.StatusInternalServerError, "failed to compute campaign stats")
		return
	}

	m := category.ClientMapping()
	out := make([]CampaignTransferStats, 0, len(campaigns))

	for _, campaign := range campaigns {
		if campaign.CurrentStatus != nil && *campaign.CurrentStatus == types.StatusArchived {
			continue
		}

		since, err := h.store.CampaignActiveSince(r.Context(), campaign.ID)
		if err != nil {
			h.logger.Error().Err(err).Int64("campaign_id", campaign.ID).Msg("failed to load active-since")
			writeError(w, http.StatusInternalServerError, "failed to compute campaign stats")
			return
		}

		finals, err := h.store.ListWindowedFinalStages(r.Context(), storage.CallFilter{
			CampaignIDs: []int64{campaign.ID},
			StartDate:   since,
		}, h.window)
		if err != nil {
			metrics.Get().RecordQueryError()
			h.logger.Error().Err(err).Int64("campaign_id", campaign.ID).Msg("failed to load final stages")
			writeError(w, http.StatusInternalServerError, "failed to compute campaign stats")
			return
		}
		metrics.Get().RecordCallStageQuery(len(finals))

		tm := stats.ComputeTransferMetrics(finals, m)
		out = append(out, CampaignTransferStats{
			Campaign:     campaign,
			Metrics:      tm,
			Stats:        stats.Aggregate(finals, m),
			TransferRate: stats.TransferRate(tm.AGradeTransfers+tm.BGradeTransfers, tm.TotalCalls),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// OverallVoiceStats aggregates transfer performance per voice across
// campaigns
// GET /api/v1/stats/voices
func (h *StatsHandler) OverallVoiceStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := storage.CallFilter{StartDate: start, EndDate: end}
	for _, s := range parseCSVParam(r, "campaign_ids") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid campaign_ids")
			return
		}
		filter.CampaignIDs = append(filter.CampaignIDs, id)
	}

	records, err := h.store.ListCallStages(r.Context(), filter)
	if err != nil {
		metrics.Get().RecordQueryError()
		h.logger.Error().Err(err).Msg("failed to load call stages")
		writeError(w, http.StatusInternalServerError, "failed to compute voice stats")
		return
	}
	metrics.Get().RecordCallStageQuery(len(records))

	computeStart := time.Now()
	sessions := session.SessionsByCallID(records)
	aggregate := stats.Aggregate(session.FinalStages(sessions), category.ClientMapping())
	metrics.Get().RecordStatsComputation(time.Since(computeStart), len(sessions))

	writeJSON(w, http.StatusOK, aggregate)
}
