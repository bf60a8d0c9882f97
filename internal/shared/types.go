package shared

// Asynq task types and queues.
const (
	TypeDeleteAsset = "asset:delete"
	TypeSweepAssets = "asset:sweep"

	QueueAsset = "asset"
)

// DeleteAssetPayload identifies a single blob scheduled for removal.
type DeleteAssetPayload struct {
	Key string `json:"key"`
}

// SweepAssetsPayload parameterizes the orphaned-asset reconciliation job.
type SweepAssetsPayload struct {
	Prefix string `json:"prefix"`
}
