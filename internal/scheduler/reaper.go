// Package scheduler handles deferred expiry: items created with a delete_at
// get an asynq task scheduled for that instant, and an in-process worker
// runs the deletion pipeline when it fires.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

// TypeReapMedia is scheduled at upload time when a retention window is set.
const TypeReapMedia = "media:reap"

type ReapPayload struct {
	ShortID string `json:"short_id"`
}

// Scheduler enqueues reap tasks.
type Scheduler struct {
	client *asynq.Client
}

func New(opt asynq.RedisClientOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt)}
}

func (s *Scheduler) Close() error { return s.client.Close() }

func (s *Scheduler) ScheduleReap(ctx context.Context, shortID string, at time.Time) error {
	data, err := json.Marshal(ReapPayload{ShortID: shortID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(TypeReapMedia, data)
	if _, err := s.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue reap task: %w", err)
	}
	return nil
}

// Deleter is the slice of the media service the reaper needs.
type Deleter interface {
	Delete(ctx context.Context, shortID string) error
}

// Reaper consumes reap tasks.
type Reaper struct {
	server *asynq.Server
	svc    Deleter
	log    *zap.SugaredLogger
}

func NewReaper(opt asynq.RedisClientOpt, concurrency int, svc Deleter, log *zap.SugaredLogger) *Reaper {
	server := asynq.NewServer(opt, asynq.Config{Concurrency: concurrency})
	return &Reaper{server: server, svc: svc, log: log}
}

// Start runs the worker loop in the background.
func (r *Reaper) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReapMedia, r.handleReap)
	return r.server.Start(mux)
}

func (r *Reaper) Shutdown() { r.server.Shutdown() }

func (r *Reaper) handleReap(ctx context.Context, task *asynq.Task) error {
	var p ReapPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	err := r.svc.Delete(ctx, p.ShortID)
	if errors.Is(err, utils.ErrNotFound) {
		// already deleted explicitly; nothing left to reap
		return nil
	}
	if err != nil {
		r.log.Warnw("reap failed, will retry", "short_id", p.ShortID, "err", err)
		return err
	}
	r.log.Infow("reaped expired media", "short_id", p.ShortID)
	return nil
}
