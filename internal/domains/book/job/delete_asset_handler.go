package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"grimoire-backend/internal/infrastructure/storage"
	"grimoire-backend/internal/shared"
	"grimoire-backend/pkg/logger"
)

// DeleteAssetHandler processes queued blob deletions. Deleting a key that is
// already gone succeeds: the point of the task is that the asset no longer
// exists afterwards.
type DeleteAssetHandler struct {
	store storage.AssetStore
}

func NewDeleteAssetHandler(store storage.AssetStore) *DeleteAssetHandler {
	return &DeleteAssetHandler{store: store}
}

func (h *DeleteAssetHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.DeleteAssetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal delete payload: %w: %v", asynq.SkipRetry, err)
	}

	if payload.Key == "" {
		return nil
	}

	if err := h.store.Delete(ctx, payload.Key); err != nil {
		logger.Warn("asset deletion failed, will retry", map[string]interface{}{
			"key":   payload.Key,
			"error": err.Error(),
		})
		return fmt.Errorf("delete asset %s: %w", payload.Key, err)
	}

	logger.Info("asset deleted", map[string]interface{}{"key": payload.Key})
	return nil
}
