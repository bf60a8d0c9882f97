package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/xid"

	"grimoire-backend/internal/domains/book/model"
	"grimoire-backend/internal/infrastructure/storage"
	"grimoire-backend/internal/shared"
	"grimoire-backend/pkg/logger"
)

// AssetManager owns the image-asset lifecycle around the blob store. Store
// and Replace block until the new asset is durable; Remove is fire-and-forget
// and never fails the caller.
type AssetManager interface {
	Store(ctx context.Context, raw []byte) (key, url string, err error)
	Replace(ctx context.Context, oldKey string, raw []byte) (key, url string, err error)
	Remove(ctx context.Context, key string)
}

// Enqueuer is the slice of asynq.Client the asset manager needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type imageAssetManager struct {
	store     storage.AssetStore
	processor *storage.ImageProcessor
	queue     Enqueuer
}

// NewAssetManager builds the production asset manager. queue may be nil, in
// which case removals run against the store directly.
func NewAssetManager(store storage.AssetStore, processor *storage.ImageProcessor, queue Enqueuer) AssetManager {
	return &imageAssetManager{
		store:     store,
		processor: processor,
		queue:     queue,
	}
}

// Store normalizes the upload to the canonical encoding and persists it
// under a fresh timestamp-derived key. Existing assets are never mutated.
func (m *imageAssetManager) Store(ctx context.Context, raw []byte) (string, string, error) {
	normalized, err := m.processor.Normalize(ctx, raw)
	if err != nil {
		if errors.Is(err, storage.ErrNotAnImage) {
			return "", "", fmt.Errorf("%w: %v", model.ErrInvalidImage, err)
		}
		if errors.Is(err, storage.ErrTooLarge) {
			return "", "", fmt.Errorf("%w: %v", model.ErrImageTooLarge, err)
		}
		return "", "", fmt.Errorf("normalize image: %w", err)
	}

	key := fmt.Sprintf("books/%s.jpg", xid.New().String())
	if err := m.store.Put(ctx, key, normalized, "image/jpeg"); err != nil {
		return "", "", fmt.Errorf("store asset: %w", err)
	}

	return key, m.store.URLFor(key), nil
}

// Replace stores the new asset first; only once it is durably persisted does
// it request deletion of the old one. A failed conversion therefore leaves
// the previous asset untouched, and a failed deletion only leaks a stale
// blob for the sweep to reclaim.
func (m *imageAssetManager) Replace(ctx context.Context, oldKey string, raw []byte) (string, string, error) {
	key, url, err := m.Store(ctx, raw)
	if err != nil {
		return "", "", err
	}

	if oldKey != "" {
		m.Remove(ctx, oldKey)
	}

	return key, url, nil
}

// Remove schedules deletion of a stored asset. Idempotent; failures are
// logged and never escalate, because a missing asset must not block record
// lifecycle operations.
func (m *imageAssetManager) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}

	if m.queue != nil {
		payload, err := json.Marshal(shared.DeleteAssetPayload{Key: key})
		if err == nil {
			task := asynq.NewTask(shared.TypeDeleteAsset, payload)
			if _, err := m.queue.Enqueue(task, asynq.Queue(shared.QueueAsset), asynq.MaxRetry(3)); err == nil {
				return
			}
			logger.Warn("failed to enqueue asset deletion, deleting inline", map[string]interface{}{
				"key": key,
			})
		}
	}

	if err := m.store.Delete(ctx, key); err != nil {
		logger.Error(fmt.Sprintf("failed to delete asset %s", key), err)
	}
}
