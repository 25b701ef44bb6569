// Package api implements the HTTP handlers. Handlers are grouped per concern
// into small structs holding the store and a component logger; all statistics
// endpoints share the same shape: parse filters, load call stages, group into
// sessions, aggregate, respond.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

// Roles that see every client's data.
var privilegedRoles = []string{"admin", "onboarding", "qa"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseDateRange reads start_date/end_date query parameters (YYYY-MM-DD).
// A start date means midnight UTC; an end date covers the whole day, so it
// resolves to 23:59:59 of that day.
func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start_date %q, expected YYYY-MM-DD", s)
		}
		start = &t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end_date %q, expected YYYY-MM-DD", s)
		}
		t = t.Add(24*time.Hour - time.Second)
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("end_date is before start_date")
	}
	return start, end, nil
}

// parsePagination reads page/page_size with sane bounds.
func parsePagination(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 50

	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}
	if s := r.URL.Query().Get("page_size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 500 {
			pageSize = v
		}
	}
	return page, pageSize
}

// paginate slices a full result set down to the requested page.
func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// parseCSVParam splits a comma-separated query parameter, dropping empties.
func parseCSVParam(r *http.Request, name string) []string {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// campaignScope is the caller's view over campaigns: privileged users see
// everything, client-side users only their client's campaigns.
type campaignScope struct {
	All      bool
	ClientID int64
}

// resolveScope derives the campaign scope from the token claims.
func resolveScope(ctx context.Context, store storage.Store, claims *auth.Claims) (campaignScope, error) {
	if claims.HasAnyRole(privilegedRoles...) {
		return campaignScope{All: true}, nil
	}

	userID, err := claims.UserID()
	if err != nil {
		return campaignScope{}, err
	}
	clientID, err := store.ClientIDForUser(ctx, userID)
	if err != nil {
		return campaignScope{}, fmt.Errorf("failed to resolve client for user %d: %w", userID, err)
	}
	return campaignScope{ClientID: clientID}, nil
}

// authorizeCampaign checks that the campaign exists and is inside the
// caller's scope, returning it on success.
func authorizeCampaign(ctx context.Context, store storage.Store, scope campaignScope, campaignID int64) (*types.Campaign, error) {
	campaign, err := store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !scope.All && campaign.ClientID != scope.ClientID {
		return nil, storage.ErrNotFound
	}
	return campaign, nil
}
