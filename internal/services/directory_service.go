package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/models"
)

// Category narrows the directory to one account type. CategoryAll keeps both.
type Category string

const (
	CategoryAll    Category = "all"
	CategoryPlayer Category = Category(models.AccountTypePlayer)
	CategoryTeam   Category = Category(models.AccountTypeTeam)
)

// ParseCategory maps a query value onto a category; anything unrecognized
// (including empty) means no category filter.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(s)) {
	case CategoryPlayer:
		return CategoryPlayer
	case CategoryTeam:
		return CategoryTeam
	default:
		return CategoryAll
	}
}

// Filter is the pure directory predicate: keep entries matching the category
// AND containing the term (case-insensitive) in display name or location.
// An empty term matches everything; absent fields never match. Retrieval
// order is preserved.
func Filter(entries []models.DirectoryEntry, category Category, term string) []models.DirectoryEntry {
	needle := strings.ToLower(strings.TrimSpace(term))

	out := make([]models.DirectoryEntry, 0, len(entries))
	for _, e := range entries {
		if category != CategoryAll && e.AccountType != models.AccountType(category) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(e.Location), needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DirectoryService fetches the full profile collection and holds it in memory.
// Filtering is never pushed down to the store; every search runs over the
// snapshot. Past a few thousand profiles the full refetch is the bottleneck.
type DirectoryService struct {
	mu       sync.RWMutex
	profiles ProfileService
	snapshot []models.DirectoryEntry
	log      *zap.Logger
}

func NewDirectoryService(profiles ProfileService, log *zap.Logger) *DirectoryService {
	return &DirectoryService{
		profiles: profiles,
		snapshot: []models.DirectoryEntry{},
		log:      log,
	}
}

// Refresh replaces the snapshot with a full fetch of the collection. A failed
// fetch is logged and leaves the current snapshot in place; there is no retry.
func (s *DirectoryService) Refresh(ctx context.Context) error {
	all, err := s.profiles.ListAll(ctx)
	if err != nil {
		s.log.Warn("directory refresh failed", zap.Error(err))
		return err
	}

	entries := make([]models.DirectoryEntry, 0, len(all))
	for _, p := range all {
		entries = append(entries, models.DirectoryEntryOf(p))
	}

	s.mu.Lock()
	s.snapshot = entries
	s.mu.Unlock()

	s.log.Debug("directory refreshed", zap.Int("profiles", len(entries)))
	return nil
}

// Snapshot returns the current directory contents in retrieval order.
func (s *DirectoryService) Snapshot() []models.DirectoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Search applies the filter to the current snapshot.
func (s *DirectoryService) Search(category Category, term string) []models.DirectoryEntry {
	return Filter(s.Snapshot(), category, term)
}
