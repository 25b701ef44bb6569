package api

import (
	"net/http"
	"sort"
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

// DashboardHandler serves the per-campaign session dashboards. The client
// view and the admin view differ on purpose: the client view uses the
// client-facing category mapping (with exclusions and transfer overrides) and
// shows one row per session, while the admin view uses the admin mapping and
// exposes the full stage detail.
type DashboardHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(store storage.Store, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:  store,
		logger: logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// SessionRow is one dashboard row: a resolved session seen through a
// category mapping.
type SessionRow struct {
	Number         string    `json:"number"`
	CallID         *int64    `json:"callId,omitempty"`
	Category       string    `json:"category"`
	CategoryColor  string    `json:"categoryColor,omitempty"`
	VoiceName      string    `json:"voiceName,omitempty"`
	Transferred    bool      `json:"transferred"`
	FinalStage     int       `json:"finalStage"`
	TotalStages    int       `json:"totalStages"`
	FirstTimestamp time.Time `json:"firstTimestamp"`
	LastTimestamp  time.Time `json:"lastTimestamp"`
	ListID         *string   `json:"listId,omitempty"`
	// Stages is populated on the admin view only.
	Stages []StageRow `json:"stages,omitempty"`
}

// StageRow is one stage of a session on the admin view.
type StageRow struct {
	Stage         int       `json:"stage"`
	Category      string    `json:"category"`
	Transferred   bool      `json:"transferred"`
	Timestamp     time.Time `json:"timestamp"`
	Transcription *string   `json:"transcription,omitempty"`
}

type dashboardResponse struct {
	Campaign *types.Campaign      `json:"campaign"`
	Stats    stats.AggregateStats `json:"stats"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Sessions []SessionRow         `json:"sessions"`
	// StageBreakdown is populated on the admin view only.
	StageBreakdown []stats.CategoryStageCounts `json:"stageBreakdown,omitempty"`
}

// ClientDashboard returns the client-facing session list and stats
// GET /api/v1/campaigns/{campaignID}/dashboard
func (h *DashboardHandler) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, category.ClientMapping(), false)
}

// AdminDashboard returns the full session detail under the admin mapping
// GET /api/v1/campaigns/{campaignID}/dashboard/admin
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, category.AdminMapping(), true)
}

func (h *DashboardHandler) dashboard(w http.ResponseWriter, r *http.Request, m category.Mapping, adminView bool) {
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
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	campaign, err := authorizeCampaign(r.Context(), h.store, scope, campaignID)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load campaign")
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := storage.CallFilter{
		CampaignIDs: []int64{campaignID},
		StartDate:   start,
		EndDate:     end,
		Search:      r.URL.Query().Get("search"),
		ListID:      r.URL.Query().Get("list_id"),
	}
	// Category filters arrive as display names and expand to the raw labels
	// behind them.
	if displays := parseCSVParam(r, "categories"); len(displays) > 0 {
		filter.Categories = m.ExpandDisplays(displays)
	}

	records, err := h.store.ListCallStages(r.Context(), filter)
	if err != nil {
		metrics.Get().RecordQueryError()
		h.logger.Error().Err(err).Int64("campaign_id", campaignID).Msg("failed to load call stages")
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	metrics.Get().RecordCallStageQuery(len(records))

	computeStart := time.Now()
	resolved := session.ResolveAll(session.SessionsByCallID(records))

	var rows []SessionRow
	for _, res := range resolved {
		raw := res.FinalStage.Category()
		display := m.Normalize(raw, res.FinalStage.Transferred)
		if raw == "" {
			// No category recorded at all; distinct from the excluded
			// sentinel, which hides the session on the client view.
			display = "Unknown"
		} else if !adminView && display == category.Excluded {
			continue
		}
		rows = append(rows, h.sessionRow(res, display, m, adminView))
	}

	// Newest activity first.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LastTimestamp.After(rows[j].LastTimestamp)
	})

	aggregate := stats.AggregateSessions(resolved, m)
	metrics.Get().RecordStatsComputation(time.Since(computeStart), len(resolved))

	resp := dashboardResponse{
		Campaign: campaign,
		Stats:    aggregate,
		Total:    len(rows),
		Sessions: rows,
	}
	resp.Page, resp.PageSize = parsePagination(r)
	resp.Sessions = paginate(rows, resp.Page, resp.PageSize)

	if adminView {
		var sessions []session.Session
		for _, res := range resolved {
			sessions = append(sessions, res.Stages)
		}
		resp.StageBreakdown = stats.StageCategoryCounts(sessions, m)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DashboardHandler) sessionRow(res session.Resolved, display string, m category.Mapping, adminView bool) SessionRow {
	final := res.FinalStage

	row := SessionRow{
		Number:         final.Number,
		CallID:         final.CallID,
		Category:       display,
		Transferred:    final.Transferred,
		FinalStage:     final.StageNumber(),
		TotalStages:    res.TotalStages,
		FirstTimestamp: res.FirstTimestamp,
		LastTimestamp:  res.LastTimestamp,
		ListID:         final.ListID,
	}
	if final.CategoryColor != nil {
		row.CategoryColor = *final.CategoryColor
	}
	if voice, ok := final.Voice(); ok {
		row.VoiceName = voice
	}

	if adminView {
		for _, rec := range res.Stages {
			row.Stages = append(row.Stages, StageRow{
				Stage:         rec.StageNumber(),
				Category:      m.Display(rec.Category()),
				Transferred:   rec.Transferred,
				Timestamp:     rec.Timestamp,
				Transcription: rec.Transcription,
			})
		}
	}
	return row
}
