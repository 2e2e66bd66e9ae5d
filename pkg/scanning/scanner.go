// Package scanning runs the matcher over an entity population to surface
// duplicate candidates
package scanning

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config bounds scan output
type Config struct {
	MaxClusters int
	MaxTargeted int
}

// DefaultConfig returns the standard result limits
func DefaultConfig() Config {
	return Config{MaxClusters: 50, MaxTargeted: 5}
}

// Scanner finds duplicate candidates among approved entities
type Scanner struct {
	stores  repositories.Stores
	matcher *matching.Matcher
	cfg     Config
	logger  ectologger.Logger
}

// NewScanner creates a new Scanner
func NewScanner(stores repositories.Stores, matcher *matching.Matcher, cfg Config, logger ectologger.Logger) *Scanner {
	if cfg.MaxClusters <= 0 {
		cfg.MaxClusters = DefaultConfig().MaxClusters
	}
	if cfg.MaxTargeted <= 0 {
		cfg.MaxTargeted = DefaultConfig().MaxTargeted
	}
	return &Scanner{stores: stores, matcher: matcher, cfg: cfg, logger: logger}
}

// Scan compares every pair of approved entities of kind and returns each
// matching pair as its own cluster, best first
func (s *Scanner) Scan(ctx context.Context, orgID string, kind models.EntityKind) (*models.ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "scanning.Scanner.Scan")
	defer span.End()

	store, err := s.entities(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	population, err := store.GetAll(ctx, orgID, models.EntityFilter{ApprovalStatus: models.ApprovalStatusApproved})
	if err != nil {
		return nil, err
	}

	profiles := make([]matching.Profile, len(population))
	for i := range population {
		profiles[i] = matching.Prepare(&population[i])
	}

	clusters := make([]models.Cluster, 0)
	for i := 0; i < len(profiles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(profiles); j++ {
			match, ok := s.matcher.MatchProfiles(profiles[i], profiles[j])
			if !ok {
				continue
			}
			clusters = append(clusters, models.Cluster{
				Entities:   []models.Entity{population[i], population[j]},
				Confidence: match.Confidence,
				Reason:     match.Reason,
			})
		}
	}

	sortClusters(clusters)
	if len(clusters) > s.cfg.MaxClusters {
		clusters = clusters[:s.cfg.MaxClusters]
	}

	metrics.RecordScan(kind, len(clusters), time.Since(start))
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"org_id":        orgID,
		"kind":          kind,
		"total_scanned": len(population),
		"clusters":      len(clusters),
	}).Info("Duplicate scan complete")

	return &models.ScanResult{
		Kind:         kind,
		Clusters:     clusters,
		TotalScanned: len(population),
	}, nil
}

// FindDuplicatesFor returns the best approved candidates for one entity,
// using the expanded heuristics
func (s *Scanner) FindDuplicatesFor(ctx context.Context, orgID string, kind models.EntityKind, targetID string) ([]models.Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "scanning.Scanner.FindDuplicatesFor")
	defer span.End()

	store, err := s.entities(kind)
	if err != nil {
		return nil, err
	}

	target, err := store.GetByID(ctx, orgID, targetID)
	if err != nil {
		return nil, err
	}

	population, err := store.GetAll(ctx, orgID, models.EntityFilter{
		ApprovalStatus: models.ApprovalStatusApproved,
		ExcludeIDs:     []string{targetID},
	})
	if err != nil {
		return nil, err
	}

	targetProfile := matching.Prepare(target)
	candidates := make([]models.Candidate, 0)
	for i := range population {
		match, ok := s.matcher.MatchProfilesExpanded(targetProfile, matching.Prepare(&population[i]))
		if !ok {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Entity:     population[i],
			Confidence: match.Confidence,
			Reason:     match.Reason,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return strings.ToLower(candidates[i].Entity.Name) < strings.ToLower(candidates[j].Entity.Name)
	})
	if len(candidates) > s.cfg.MaxTargeted {
		candidates = candidates[:s.cfg.MaxTargeted]
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"org_id":     orgID,
		"kind":       kind,
		"target_id":  targetID,
		"candidates": len(candidates),
	}).Debug("Targeted duplicate lookup complete")

	return candidates, nil
}

func (s *Scanner) entities(kind models.EntityKind) (repositories.EntityStore, error) {
	store := s.stores.Entities(kind)
	if store == nil {
		return nil, repositories.BadRequest("unknown entity kind %q", kind)
	}
	return store, nil
}

// sortClusters orders by confidence, then by member names for a stable result
func sortClusters(clusters []models.Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Confidence != clusters[j].Confidence {
			return clusters[i].Confidence > clusters[j].Confidence
		}
		return clusterKey(clusters[i]) < clusterKey(clusters[j])
	})
}

func clusterKey(c models.Cluster) string {
	names := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		names[i] = strings.ToLower(e.Name)
	}
	return strings.Join(names, "\x00")
}
