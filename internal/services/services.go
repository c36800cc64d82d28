// Package services holds the consistency logic that spans repositories:
// the toggle engine, the notification inbox, authorized deletes and the
// post cascade. Every multi-document change runs in one store transaction;
// realtime events and best-effort cleanup run only after it commits.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (Page-1)*Limit well inside int32.
	maxPage         = 1_000_000
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Page) skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// ignoreNotFound treats a missing parent or owner as already cleaned up.
func ignoreNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

// ownershipError resolves a failed owner-filtered delete: the object is
// either gone (not found) or belongs to someone else (forbidden).
func ownershipError(ctx context.Context, err error, resource, id string, exists func(context.Context, string) (bool, error)) error {
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}
	ok, existsErr := exists(ctx, id)
	if existsErr != nil {
		return existsErr
	}
	if ok {
		return models.NewForbiddenError("you can only delete your own " + resource)
	}
	return models.NewNotFoundError(resource, id)
}

// bestEffort logs and counts a failed post-commit step.
func bestEffort(ctx context.Context, step string, err error) {
	if err == nil {
		return
	}
	metrics.BestEffortFailures.WithLabelValues(step).Inc()
	logger.Ctx(ctx).Warn().Err(err).Str("step", step).Msg("post-commit step failed")
}

type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
