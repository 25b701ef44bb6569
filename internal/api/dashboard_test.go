package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/types"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func stageRecord(campaignID int64, number string, callID *int64, stage int, raw, voice string, transferred bool, offset time.Duration) types.CallStageRecord {
	r := types.CallStageRecord{
		CampaignID:  campaignID,
		Number:      number,
		CallID:      callID,
		Stage:       &stage,
		Timestamp:   testTime.Add(offset),
		Transferred: transferred,
	}
	if raw != "" {
		r.ResponseCategory = &raw
	}
	if voice != "" {
		r.VoiceName = &voice
	}
	return r
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

// authedRequest builds a request carrying token claims for the given user.
func authedRequest(method, target string, userID int64, roles []string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	claims := &auth.Claims{Roles: roles}
	claims.Subject = strconv.FormatInt(userID, 10)
	return req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
}

func testCampaigns() []types.Campaign {
	return []types.Campaign{
		{ID: 1, ClientID: 10, ClientName: "Acme", CampaignName: "Solar Leads", ModelName: "m1", IsActive: true, CurrentStatus: strPtr(types.StatusEnabled)},
		{ID: 2, ClientID: 20, ClientName: "Globex", CampaignName: "Roofing", ModelName: "m2", IsActive: true, CurrentStatus: strPtr(types.StatusEnabled)},
	}
}

func dashboardRouter(store *stubStore) *chi.Mux {
	h := NewDashboardHandler(store, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/campaigns/{campaignID}/dashboard", h.ClientDashboard)
	r.Get("/campaigns/{campaignID}/dashboard/admin", h.AdminDashboard)
	return r
}

func TestClientDashboardGroupsByCallID(t *testing.T) {
	store := &stubStore{
		campaigns: testCampaigns(),
		records: []types.CallStageRecord{
			stageRecord(1, "100", int64Ptr(5), 1, "neutral", "nova", false, 0),
			stageRecord(1, "100", int64Ptr(5), 2, "qualified", "nova", true, time.Minute),
			stageRecord(1, "200", nil, 1, "notinterested", "echo", false, 2*time.Minute),
		},
	}

	req := authedRequest(http.MethodGet, "/campaigns/1/dashboard", 1, []string{"admin"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Total != 2 {
		t.Fatalf("expected 2 sessions, got %d", resp.Total)
	}
	// Newest activity first: the nil-call-id singleton at +2m.
	if resp.Sessions[0].Number != "200" {
		t.Errorf("expected 200 first, got %s", resp.Sessions[0].Number)
	}
	// The call-id session resolves to its max stage.
	if resp.Sessions[1].Number != "100" || resp.Sessions[1].FinalStage != 2 {
		t.Errorf("expected 100 at final stage 2, got %s at %d", resp.Sessions[1].Number, resp.Sessions[1].FinalStage)
	}
	if resp.Sessions[1].Category != "Qualified" {
		t.Errorf("expected Qualified, got %s", resp.Sessions[1].Category)
	}
	if resp.Sessions[1].TotalStages != 2 {
		t.Errorf("expected 2 stages, got %d", resp.Sessions[1].TotalStages)
	}
	// Client view carries no stage detail.
	if resp.Sessions[1].Stages != nil {
		t.Error("client view must not include stage detail")
	}
	if resp.Stats.TotalSessions != 2 || resp.Stats.TransferredCalls != 1 {
		t.Errorf("unexpected stats: %+v", resp.Stats)
	}
}

func TestClientDashboardHidesExcludedSessions(t *testing.T) {
	store := &stubStore{
		campaigns: testCampaigns(),
		records: []types.CallStageRecord{
			stageRecord(1, "100", int64Ptr(1), 1, "repeatpitch", "nova", false, 0),
			stageRecord(1, "200", int64Ptr(2), 1, "neutral", "nova", false, time.Minute),
		},
	}

	req := authedRequest(http.MethodGet, "/campaigns/1/dashboard", 1, []string{"admin"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Total != 1 {
		t.Fatalf("expected 1 visible session, got %d", resp.Total)
	}
	if resp.Sessions[0].Number != "200" {
		t.Errorf("expected 200, got %s", resp.Sessions[0].Number)
	}
	// Stats still count the hidden session toward totals.
	if resp.Stats.TotalSessions != 2 {
		t.Errorf("expected 2 total sessions in stats, got %d", resp.Stats.TotalSessions)
	}
}

func TestAdminDashboardShowsStageDetail(t *testing.T) {
	store := &stubStore{
		campaigns: testCampaigns(),
		records: []types.CallStageRecord{
			stageRecord(1, "100", int64Ptr(1), 1, "repeatpitch", "nova", false, 0),
			stageRecord(1, "100", int64Ptr(1), 2, "qualified", "nova", true, time.Minute),
		},
	}

	req := authedRequest(http.MethodGet, "/campaigns/1/dashboard/admin", 1, []string{"admin"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	// Admin mapping excludes nothing.
	if resp.Total != 1 {
		t.Fatalf("expected 1 session, got %d", resp.Total)
	}
	if len(resp.Sessions[0].Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(resp.Sessions[0].Stages))
	}
	if resp.Sessions[0].Stages[0].Category != "Repeat Pitch" {
		t.Errorf("expected Repeat Pitch under admin mapping, got %s", resp.Sessions[0].Stages[0].Category)
	}
	if resp.StageBreakdown == nil {
		t.Error("expected stage breakdown on admin view")
	}
}

func TestDashboardScopesClientUsers(t *testing.T) {
	store := &stubStore{
		campaigns: testCampaigns(),
		clientIDs: map[int64]int64{7: 10},
	}

	// Campaign 2 belongs to another client.
	req := authedRequest(http.MethodGet, "/campaigns/2/dashboard", 7, []string{"client"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	// Its own campaign works.
	req = authedRequest(http.MethodGet, "/campaigns/1/dashboard", 7, []string{"client"})
	rec = httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestDashboardExpandsCategoryFilter(t *testing.T) {
	store := &stubStore{campaigns: testCampaigns()}

	req := authedRequest(http.MethodGet, "/campaigns/1/dashboard?categories=Qualified", 1, []string{"admin"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	got := store.lastFilter.Categories
	if len(got) != 2 || got[0] != "interested" || got[1] != "qualified" {
		t.Errorf("expected filter expanded to raw labels, got %v", got)
	}
}

func TestDashboardInvalidDates(t *testing.T) {
	store := &stubStore{campaigns: testCampaigns()}

	req := authedRequest(http.MethodGet, "/campaigns/1/dashboard?start_date=junk", 1, []string{"admin"})
	rec := httptest.NewRecorder()
	dashboardRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
