package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

// CampaignHandler lists campaigns for the caller's scope
type CampaignHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(store storage.Store, logger zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{
		store:  store,
		logger: logger.With().Str("component", "campaign_handler").Logger(),
	}
}

// List returns the campaigns visible to the caller. Privileged users see
// everything; client-side users see their own campaigns, and only while the
// campaign status is Enabled or Testing.
// GET /api/v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	scope, err := resolveScope(r.Context(), h.store, claims)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve scope")
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	var campaigns []types.Campaign
	if scope.All {
		campaigns, err = h.store.ListCampaigns(r.Context())
	} else {
		campaigns, err = h.store.ListCampaignsForClient(r.Context(), scope.ClientID)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list campaigns")
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	if !scope.All {
		campaigns = filterClientVisible(campaigns)
	}

	if campaigns == nil {
		campaigns = []types.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func filterClientVisible(campaigns []types.Campaign) []types.Campaign {
	var visible []types.Campaign
	for _, c := range campaigns {
		if c.CurrentStatus == nil {
			continue
		}
		if s := *c.CurrentStatus; s == types.StatusEnabled || s == types.StatusTesting {
			visible = append(visible, c)
		}
	}
	return visible
}
