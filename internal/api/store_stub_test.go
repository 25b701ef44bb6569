package api

import (
	"context"
	"time"

	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/internal/types"
)

// stubStore is an in-memory Store for handler tests.
type stubStore struct {
	records    []types.CallStageRecord
	campaigns  []types.Campaign
	users      map[string]types.User
	clientIDs  map[int64]int64 // user id -> client id
	categories []types.ResponseCategory
	voices     []types.Voice
	err        error

	lastFilter storage.CallFilter
}

func (s *stubStore) filtered(f storage.CallFilter) []types.CallStageRecord {
	var out []types.CallStageRecord
	for _, r := range s.records {
		if len(f.CampaignIDs) > 0 {
			match := false
			for _, id := range f.CampaignIDs {
				if r.CampaignID == id {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if len(f.Numbers) > 0 {
			match := false
			for _, n := range f.Numbers {
				if r.Number == n {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if f.StartDate != nil && r.Timestamp.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && r.Timestamp.After(*f.EndDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *stubStore) ListCallStages(_ context.Context, f storage.CallFilter) ([]types.CallStageRecord, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	return s.filtered(f), nil
}

func (s *stubStore) ListWindowedFinalStages(_ context.Context, f storage.CallFilter, window time.Duration) ([]types.CallStageRecord, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	return session.FinalStages(session.GroupByWindow(s.filtered(f), window)), nil
}

func (s *stubStore) ListCampaigns(context.Context) ([]types.Campaign, error) {
	return s.campaigns, s.err
}

func (s *stubStore) ListCampaignsForClient(_ context.Context, clientID int64) ([]types.Campaign, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []types.Campaign
	for _, c := range s.campaigns {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) GetCampaign(_ context.Context, id int64) (*types.Campaign, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) CampaignActiveSince(context.Context, int64) (*time.Time, error) {
	return nil, s.err
}

func (s *stubStore) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[email]; ok {
		return &u, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) ClientIDForUser(_ context.Context, userID int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if id, ok := s.clientIDs[userID]; ok {
		return id, nil
	}
	return 0, storage.ErrNotFound
}

func (s *stubStore) ListResponseCategories(context.Context) ([]types.ResponseCategory, error) {
	return s.categories, s.err
}

func (s *stubStore) ListVoices(context.Context) ([]types.Voice, error) {
	return s.voices, s.err
}

func (s *stubStore) GetVoice(_ context.Context, id int64) (*types.Voice, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, v := range s.voices {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) CreateVoices(_ context.Context, names []string) ([]types.Voice, error) {
	if s.err != nil {
		return nil, s.err
	}
	var created []types.Voice
	for i, name := range names {
		v := types.Voice{ID: int64(len(s.voices) + i + 1), Name: name}
		created = append(created, v)
	}
	s.voices = append(s.voices, created...)
	return created, nil
}

func (s *stubStore) DeleteVoices(_ context.Context, ids []int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(ids)), nil
}

func (s *stubStore) Close() {}
