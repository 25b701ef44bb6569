package cache

import (
	"testing"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

func TestCatalogCacheRoundTrip(t *testing.T) {
	c := NewCatalogCache(time.Minute)

	if c.Categories() != nil {
		t.Error("expected empty cache to return nil")
	}
	if c.Voices() != nil {
		t.Error("expected empty cache to return nil")
	}

	c.SetCategories([]types.ResponseCategory{{ID: 1, Name: "qualified"}})
	c.SetVoices([]types.Voice{{ID: 1, Name: "nova"}})

	if got := c.Categories(); len(got) != 1 || got[0].Name != "qualified" {
		t.Errorf("unexpected categories: %v", got)
	}
	if got := c.Voices(); len(got) != 1 || got[0].Name != "nova" {
		t.Errorf("unexpected voices: %v", got)
	}
}

func TestCatalogCacheExpiry(t *testing.T) {
	c := NewCatalogCache(10 * time.Millisecond)

	c.SetCategories([]types.ResponseCategory{{ID: 1, Name: "qualified"}})
	time.Sleep(20 * time.Millisecond)

	if c.Categories() != nil {
		t.Error("expected stale categories to return nil")
	}
}

func TestCatalogCacheInvalidateVoices(t *testing.T) {
	c := NewCatalogCache(time.Minute)

	c.SetVoices([]types.Voice{{ID: 1, Name: "nova"}})
	c.SetCategories([]types.ResponseCategory{{ID: 1, Name: "qualified"}})
	c.InvalidateVoices()

	if c.Voices() != nil {
		t.Error("expected voices invalidated")
	}
	if c.Categories() == nil {
		t.Error("categories must survive a voice invalidation")
	}
}
