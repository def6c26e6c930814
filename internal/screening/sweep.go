package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
)

// ImageReferences reports which blob keys are still pointed at by a screening.
type ImageReferences interface {
	ReferencedImages(ctx context.Context, keys []string) (map[string]bool, error)
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Scanned int
	Orphans int
	Deleted int
}

// SweepService removes image blobs that no screening row references. Blobs
// younger than the grace period are skipped so in-flight uploads survive.
type SweepService struct {
	refs   ImageReferences
	blobs  blob.Store
	prefix string
	grace  time.Duration
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewSweepService(refs ImageReferences, blobs blob.Store, prefix string, grace time.Duration, logger logrus.FieldLogger) *SweepService {
	if prefix == "" {
		prefix = "screenings/"
	}
	return &SweepService{refs: refs, blobs: blobs, prefix: prefix, grace: grace, log: logger, now: time.Now}
}

// Candidates lists blobs under the prefix that are older than the grace period.
func (s *SweepService) Candidates(ctx context.Context) ([]blob.Object, error) {
	objects, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	var old []blob.Object
	for _, o := range objects {
		if !strings.HasPrefix(o.Key, s.prefix) || o.ModTime.After(cutoff) {
			continue
		}
		old = append(old, o)
	}
	return old, nil
}

// Sweep deletes unreferenced candidates. A failed delete is logged and the
// sweep continues.
func (s *SweepService) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	candidates, err := s.Candidates(ctx)
	if err != nil {
		return res, err
	}
	res.Scanned = len(candidates)
	if len(candidates) == 0 {
		s.log.Info("no blobs old enough to sweep")
		return res, nil
	}

	keys := make([]string, len(candidates))
	for i, o := range candidates {
		keys[i] = o.Key
	}
	refs, err := s.refs.ReferencedImages(ctx, keys)
	if err != nil {
		return res, err
	}

	for _, key := range keys {
		if refs[key] {
			continue
		}
		res.Orphans++
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("failed to delete orphaned blob")
			continue
		}
		res.Deleted++
		s.log.WithField("key", key).Debug("deleted orphaned blob")
	}

	s.log.WithFields(logrus.Fields{
		"scanned": res.Scanned,
		"orphans": res.Orphans,
		"deleted": res.Deleted,
	}).Info("blob sweep finished")
	return res, nil
}
