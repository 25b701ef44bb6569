package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CallFilter narrows call stage queries. Zero values mean "no filter".
type CallFilter struct {
	CampaignIDs []int64
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string   // matches the dialed number
	ListID      string
	Categories  []string // raw response category names
	Numbers     []string // exact number match, used by call lookup
}

// Store defines the storage interface
type Store interface {
	// Call stages
	ListCallStages(ctx context.Context, f CallFilter) ([]types.CallStageRecord, error)
	// ListWindowedFinalStages pushes time-window session grouping into the
	// database and returns only the final stage of each session.
	ListWindowedFinalStages(ctx context.Context, f CallFilter, window time.Duration) ([]types.CallStageRecord, error)

	// Campaigns
	ListCampaigns(ctx context.Context) ([]types.Campaign, error)
	ListCampaignsForClient(ctx context.Context, clientID int64) ([]types.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*types.Campaign, error)
	CampaignActiveSince(ctx context.Context, id int64) (*time.Time, error)

	// Users
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	// ClientIDForUser resolves a client or client-member account to the
	// client whose campaigns it may see.
	ClientIDForUser(ctx context.Context, userID int64) (int64, error)

	// Catalogs
	ListResponseCategories(ctx context.Context) ([]types.ResponseCategory, error)
	ListVoices(ctx context.Context) ([]types.Voice, error)
	GetVoice(ctx context.Context, id int64) (*types.Voice, error)
	CreateVoices(ctx context.Context, names []string) ([]types.Voice, error)
	DeleteVoices(ctx context.Context, ids []int64) (int64, error)

	Close()
}
