package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain/classification"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/port/cache"
	"github.com/taskdesk/taskdesk/internal/port/classifier"
	"github.com/taskdesk/taskdesk/internal/resilience"
)

// classificationTTL bounds how long a cached classification is served
// before the resolver is asked again.
const classificationTTL = 5 * time.Minute

// ClassificationService wraps the external classification resolver with an
// in-process cache and a circuit breaker. Classifications are read on every
// due-date computation but change rarely, and the resolver is a remote
// collaborator.
type ClassificationService struct {
	resolver classifier.Resolver
	cache    cache.Cache
	breaker  *resilience.Breaker
}

// NewClassificationService creates a ClassificationService.
func NewClassificationService(resolver classifier.Resolver, c cache.Cache, breaker *resilience.Breaker) *ClassificationService {
	return &ClassificationService{resolver: resolver, cache: c, breaker: breaker}
}

// Get looks up a classification by key and domain, serving from cache when
// possible.
func (s *ClassificationService) Get(ctx context.Context, key, domain string) (*classification.Summary, error) {
	cacheKey := "classification:" + domain + ":" + key

	if data, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var summary classification.Summary
		if err := json.Unmarshal(data, &summary); err == nil {
			return &summary, nil
		}
		// a corrupt entry is dropped and refetched
		_ = s.cache.Delete(ctx, cacheKey)
	}

	var summary *classification.Summary
	err := s.breaker.Execute(func() error {
		var err error
		summary, err = s.resolver.Classification(ctx, key, domain)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve classification %s/%s: %w", domain, key, err)
	}

	if data, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, classificationTTL); err != nil {
			slog.Warn("classification cache set failed", "key", cacheKey, "error", err)
		}
	}
	return summary, nil
}

// DueFor derives a task's due date from its planned date and the shortest
// service level across the task's classification and all attachment
// classifications.
func (s *ClassificationService) DueFor(ctx context.Context, t *task.Task) (time.Time, error) {
	if t.Planned.IsZero() || t.ClassificationKey == "" {
		return time.Time{}, nil
	}

	keys := make([]string, 0, len(t.Attachments)+1)
	keys = append(keys, t.ClassificationKey)
	for _, a := range t.Attachments {
		if a.ClassificationKey != "" {
			keys = append(keys, a.ClassificationKey)
		}
	}

	levels := make([]time.Duration, 0, len(keys))
	for _, key := range keys {
		summary, err := s.Get(ctx, key, t.Domain)
		if err != nil {
			return time.Time{}, err
		}
		levels = append(levels, summary.ServiceLevel)
	}
	return classification.Due(t.Planned, levels...), nil
}
