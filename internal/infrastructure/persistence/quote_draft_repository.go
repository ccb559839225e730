package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/persistence/models"
)

var errStaleDraft = errors.New("quote draft version changed")

// GormQuoteDraftRepository implements quote.DraftRepository using GORM with
// optimistic locking on the version column
type GormQuoteDraftRepository struct {
	db         *gorm.DB
	maxRetries uint64
	retryBase  time.Duration
}

// NewGormQuoteDraftRepository creates a new GormQuoteDraftRepository.
// Conflicting writes are retried maxRetries times with exponential backoff
// starting at retryBase.
func NewGormQuoteDraftRepository(db *gorm.DB, maxRetries int, retryBase time.Duration) *GormQuoteDraftRepository {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryBase <= 0 {
		retryBase = 5 * time.Millisecond
	}
	return &GormQuoteDraftRepository{db: db, maxRetries: uint64(maxRetries), retryBase: retryBase}
}

// Load returns the draft under key; a missing row is an empty draft
func (r *GormQuoteDraftRepository) Load(ctx context.Context, key string) ([]quote.DraftLineItem, error) {
	model, err := r.find(ctx, key)
	if err != nil || model == nil {
		return nil, err
	}
	return model.ToDomain()
}

// Update reads the row, applies fn and writes back only if the version is
// unchanged. Lost races are retried; exhausted retries yield
// quote.ErrDraftConflict.
func (r *GormQuoteDraftRepository) Update(ctx context.Context, key string, fn func([]quote.DraftLineItem) ([]quote.DraftLineItem, error)) error {
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := r.tryUpdate(ctx, key, fn)
		if errors.Is(err, errStaleDraft) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, errStaleDraft) {
		return quote.ErrDraftConflict
	}
	return err
}

func (r *GormQuoteDraftRepository) tryUpdate(ctx context.Context, key string, fn func([]quote.DraftLineItem) ([]quote.DraftLineItem, error)) error {
	current, err := r.find(ctx, key)
	if err != nil {
		return err
	}
	var items []quote.DraftLineItem
	if current != nil {
		if items, err = current.ToDomain(); err != nil {
			return err
		}
	}

	next, err := fn(items)
	if err != nil {
		return err
	}
	encoded, err := models.EncodeDraftItems(next)
	if err != nil {
		return err
	}
	now := time.Now()

	if current == nil {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "draft_key"}},
				DoNothing: true,
			}).
			Create(&models.QuoteDraftModel{DraftKey: key, Items: encoded, Version: 1, UpdatedAt: now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStaleDraft
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.QuoteDraftModel{}).
		Where("draft_key = ? AND version = ?", key, current.Version).
		Updates(map[string]any{
			"items":      encoded,
			"version":    current.Version + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errStaleDraft
	}
	return nil
}

// Clear deletes the draft row under key
func (r *GormQuoteDraftRepository) Clear(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("draft_key = ?", key).
		Delete(&models.QuoteDraftModel{}).Error
}

// PurgeStale deletes drafts last written before cutoff and returns how many
// were removed
func (r *GormQuoteDraftRepository) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.QuoteDraftModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge stale quote drafts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormQuoteDraftRepository) find(ctx context.Context, key string) (*models.QuoteDraftModel, error) {
	var model models.QuoteDraftModel
	err := r.db.WithContext(ctx).Where("draft_key = ?", key).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *GormQuoteDraftRepository) backoff() retry.Backoff {
	b := retry.NewExponential(r.retryBase)
	b = retry.WithCappedDuration(50*r.retryBase, b)
	b = retry.WithJitter(r.retryBase, b)
	return retry.WithMaxRetries(r.maxRetries, b)
}

var _ quote.DraftRepository = (*GormQuoteDraftRepository)(nil)
