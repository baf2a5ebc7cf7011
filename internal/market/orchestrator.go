package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/constants"
	"github.com/carrotlabs/go-carrot-market/models"
)

// RunJob drives a claimed job through decode -> execute -> store ->
// finalize. Steps are strictly sequential and each failure leaves enough
// retained state to retry from that step without re-running the earlier
// ones.
func (s *Service) RunJob(ctx context.Context, jobID int64) error {
	job, err := s.market.GetJob(ctx, jobID)
	if err != nil {
		return xerrors.Errorf("loading job %d: %w", jobID, err)
	}
	if err := job.EnsureCompletable(); err != nil {
		return err
	}

	spec := models.DecodeJobSpec(job.Description)

	state := &ExecState{JobID: jobID, Kind: spec.Kind}
	if spec.NeedsExecution() {
		result, err := s.worker.Process(ctx, models.WorkerRequest{
			JobID:   jobID,
			Kind:    spec.Kind,
			Payload: spec.WorkerPayload(),
		})
		if err != nil {
			// job stays Claimed; retry is operator-initiated
			return err
		}
		state.Transcript = result.Transcript
		state.RawResult = result.Result
	} else {
		state.Transcript = fmt.Sprintf("job %d: %s", jobID, spec.Description)
		state.RawResult = fmt.Sprintf("completed: %s", spec.Description)
	}

	s.writeTranscript(jobID, state.Transcript)

	if err := s.states.Save(state); err != nil {
		logs.GetLogger().Warnf("retaining exec state for job %d: %v", jobID, err)
	}

	return s.finalize(ctx, state)
}

// RetryFinalize resumes a job whose upload or completion call failed,
// using the retained execution state instead of re-running the worker.
func (s *Service) RetryFinalize(ctx context.Context, jobID int64) error {
	state, err := s.states.Load(jobID)
	if err != nil {
		return err
	}
	if state == nil {
		return xerrors.Errorf("no retained execution state for job %d, re-run it", jobID)
	}
	return s.finalize(ctx, state)
}

// finalize stores the result if it is not already a locator, then calls
// the ledger's completion action. Retained state is only discarded once
// the ledger confirms.
func (s *Service) finalize(ctx context.Context, state *ExecState) error {
	if state.Locator == "" {
		if IsLocator(state.RawResult) {
			// worker uploaded the artifact directly
			state.Locator = state.RawResult
		} else {
			locator, err := s.store.Store(ctx, state.JobID, state.Transcript, state.RawResult)
			if err != nil {
				return err
			}
			state.Locator = locator
		}
		if err := s.states.Save(state); err != nil {
			logs.GetLogger().Warnf("retaining exec state for job %d: %v", state.JobID, err)
		}
	}

	if err := s.market.CompleteJob(ctx, state.JobID, state.Locator); err != nil {
		return err
	}

	if err := s.states.Delete(state.JobID); err != nil {
		logs.GetLogger().Warnf("clearing exec state for job %d: %v", state.JobID, err)
	}
	s.notify.Push(fmt.Sprintf("Job %d completed, result %s", state.JobID, state.Locator))
	s.sync.Kick()
	return nil
}

// RunJobAsync queues the execution on the celery worker instead of
// blocking the caller.
func (s *Service) RunJobAsync(jobID int64) error {
	_, err := NewCeleryService().DelayTask(constants.TASK_EXECUTE_JOB, jobID)
	if err != nil {
		return xerrors.Errorf("queueing job %d: %w", jobID, err)
	}
	return nil
}

// RegisterExecutionTask binds the celery task name to this service.
func (s *Service) RegisterExecutionTask(celery *CeleryService) {
	celery.RegisterTask(constants.TASK_EXECUTE_JOB, s.executionTask)
}

// executionTask is the celery entrypoint. Queued args travel as JSON
// numbers and arrive as float64; gocelery only converts them to plain int
// before the call, so the parameter must not be int64.
func (s *Service) executionTask(jobID int) error {
	if err := s.RunJob(context.Background(), int64(jobID)); err != nil {
		logs.GetLogger().Errorf("executing job %d: %v", jobID, err)
		return err
	}
	return nil
}

func (s *Service) writeTranscript(jobID int64, transcript string) {
	if s.transcriptDir == "" {
		return
	}
	if err := os.MkdirAll(s.transcriptDir, 0755); err != nil {
		logs.GetLogger().Warnf("creating transcript dir: %v", err)
		return
	}
	path := filepath.Join(s.transcriptDir, fmt.Sprintf("job-%d.log", jobID))
	if err := os.WriteFile(path, []byte(transcript), 0644); err != nil {
		logs.GetLogger().Warnf("writing transcript for job %d: %v", jobID, err)
	}
}

// TranscriptPath returns the on-disk transcript location for a job.
func (s *Service) TranscriptPath(jobID int64) string {
	return filepath.Join(s.transcriptDir, fmt.Sprintf("job-%d.log", jobID))
}
