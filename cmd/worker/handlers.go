package main

import (
	"github.com/hibiken/asynq"

	"grimoire-backend/internal/domains/book/job"
	"grimoire-backend/internal/shared"
	"grimoire-backend/pkg/container"
)

// HandlerRegistry holds every job handler the worker serves.
type HandlerRegistry struct {
	deleteAsset *job.DeleteAssetHandler
	sweepAssets *job.SweepAssetsHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		deleteAsset: job.NewDeleteAssetHandler(c.Storage),
		sweepAssets: job.NewSweepAssetsHandler(c.Storage, c.BookRepo),
	}
}

func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeDeleteAsset, h.deleteAsset.ProcessTask)
	mux.HandleFunc(shared.TypeSweepAssets, h.sweepAssets.ProcessTask)
}
