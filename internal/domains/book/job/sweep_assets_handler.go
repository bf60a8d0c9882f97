package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"grimoire-backend/internal/domains/book/repository"
	"grimoire-backend/internal/infrastructure/storage"
	"grimoire-backend/internal/shared"
	"grimoire-backend/pkg/logger"
)

// SweepAssetsHandler reclaims orphaned blobs: stored objects whose key no
// book references anymore. Orphans accumulate when a deferred deletion is
// lost or a record insert fails after its asset was already stored.
type SweepAssetsHandler struct {
	store storage.AssetStore
	repo  repository.RepositoryInterface
}

func NewSweepAssetsHandler(store storage.AssetStore, repo repository.RepositoryInterface) *SweepAssetsHandler {
	return &SweepAssetsHandler{store: store, repo: repo}
}

func (h *SweepAssetsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.SweepAssetsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal sweep payload: %w: %v", asynq.SkipRetry, err)
	}

	stored, err := h.store.ListKeys(ctx, payload.Prefix)
	if err != nil {
		return fmt.Errorf("list stored assets: %w", err)
	}

	referenced, err := h.repo.ListAssetKeys(ctx)
	if err != nil {
		return fmt.Errorf("list referenced assets: %w", err)
	}

	live := make(map[string]struct{}, len(referenced))
	for _, key := range referenced {
		live[key] = struct{}{}
	}

	var removed, failed int
	for _, key := range stored {
		if _, ok := live[key]; ok {
			continue
		}
		if err := h.store.Delete(ctx, key); err != nil {
			failed++
			logger.Warn("orphan deletion failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			continue
		}
		removed++
	}

	logger.Info("asset sweep finished", map[string]interface{}{
		"prefix":  payload.Prefix,
		"scanned": len(stored),
		"removed": removed,
		"failed":  failed,
	})
	return nil
}
