// Package queues holds the background workers of the media service.
package queues

import (
	"context"
	"sync"
	"time"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/apps/default/service/business"
	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/default/service/storage"
	"github.com/shahadathhs/service-media/internal"
	"github.com/shahadathhs/service-media/internal/telemetry"
)

const pollBatchSize = 50

// MergeStatusPoller periodically re-checks unfinished merge jobs against the
// transcoder and pushes a realtime notification when a job reaches a
// terminal state.
type MergeStatusPoller struct {
	cfg       *config.MediaConfig
	mergeRepo business.MergeJobStore
	converter storage.MergeConverter
	notifier  business.Notifier
	workMan   workerpool.Manager

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMergeStatusPoller creates a poller; call Start to begin polling.
func NewMergeStatusPoller(
	cfg *config.MediaConfig,
	mergeRepo business.MergeJobStore,
	converter storage.MergeConverter,
	notifier business.Notifier,
	workMan workerpool.Manager,
) *MergeStatusPoller {
	return &MergeStatusPoller{
		cfg:       cfg,
		mergeRepo: mergeRepo,
		converter: converter,
		notifier:  notifier,
		workMan:   workMan,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling loop. It runs until Stop is called or the
// context is cancelled.
func (p *MergeStatusPoller) Start(ctx context.Context) {
	interval := time.Duration(p.cfg.MergePollIntervalSec) * time.Second

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.pollOnce(ctx)
			}
		}
	}()
}

// Stop terminates the polling loop and waits for it to exit.
func (p *MergeStatusPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
}

func (p *MergeStatusPoller) pollOnce(ctx context.Context) {
	jobs, err := p.mergeRepo.GetUnfinished(ctx, pollBatchSize)
	if err != nil {
		util.Log(ctx).WithError(err).Error("failed to list unfinished merge jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, record := range jobs {
		wg.Add(1)
		job := workerpool.NewJob[any](func(jobCtx context.Context, _ workerpool.JobResultPipe[any]) error {
			defer wg.Done()
			return p.checkJob(jobCtx, record)
		})
		if submitErr := workerpool.SubmitJob(ctx, p.workMan, job); submitErr != nil {
			wg.Done()
			util.Log(ctx).WithError(submitErr).WithField("merge_id", record.GetID()).
				Error("failed to submit merge status check")
		}
	}
	wg.Wait()
}

// checkJob fetches the current transcoder status and handles a transition.
// Errors are logged, never returned to the pool, so one broken job cannot
// stall the batch.
func (p *MergeStatusPoller) checkJob(ctx context.Context, record *models.VideoMergeJob) error {
	logger := util.Log(ctx).WithFields(map[string]any{
		"merge_id": record.GetID(),
		"job_id":   record.JobID,
	})

	startTime := time.Now()
	status, err := p.converter.GetJobStatus(ctx, record.JobID)
	telemetry.MergeStatusLatencyHistogram.Record(ctx, float64(time.Since(startTime).Milliseconds()))
	if err != nil {
		logger.WithError(err).Warn("failed to check merge job status")
		return nil
	}

	if status == record.Status {
		return nil
	}

	if err = p.mergeRepo.UpdateStatus(ctx, record.GetID(), status); err != nil {
		logger.WithError(err).Error("failed to persist merge status transition")
		return nil
	}

	logger.WithFields(map[string]any{
		"from": record.Status,
		"to":   status,
	}).Info("merge job status changed")

	if !models.IsTerminalMergeStatus(status) {
		return nil
	}

	result := &business.MergeStatus{
		MergeID:   record.GetID(),
		JobID:     record.JobID,
		Status:    status,
		OutputURL: record.OutputURL,
	}

	var notifyErr error
	if status == models.MergeStatusComplete {
		telemetry.MergeJobsCompletedCounter.Add(ctx, 1)
		notifyErr = p.notifier.BroadcastToUser(
			ctx, record.SubmittedBy, internal.EventMergeCompleted, result,
			"Video merge completed successfully",
		)
	} else {
		telemetry.MergeJobsFailedCounter.Add(ctx, 1)
		notifyErr = p.notifier.BroadcastToUser(
			ctx, record.SubmittedBy, internal.EventMergeFailed, result,
			"Video merge failed",
		)
	}
	if notifyErr != nil {
		logger.WithError(notifyErr).Warn("failed to publish merge completion notification")
	}

	return nil
}
