package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"grimoire-backend/internal/shared"
	"grimoire-backend/pkg/logger"
)

// Scheduler registers the recurring maintenance jobs. Only the worker
// process runs one.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddr, redisPassword string) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

// RegisterJobs wires every periodic task. Currently that is the nightly
// orphan sweep, which reclaims blobs no catalog record references.
func (s *Scheduler) RegisterJobs() error {
	return s.registerSweepAssetsJob()
}

// Nightly at 4 AM UTC: low traffic, and any deletion lost during the day
// gets reclaimed within 24 hours.
func (s *Scheduler) registerSweepAssetsJob() error {
	payload, err := json.Marshal(shared.SweepAssetsPayload{Prefix: "books/"})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSweepAssets, payload)

	_, err = s.scheduler.Register(
		"0 4 * * *",
		task,
		asynq.Queue(shared.QueueAsset),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("failed to register asset sweep job", err)
		return err
	}

	logger.Info("registered asset sweep: daily at 4 AM UTC", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
