package market

import (
	"context"
	"fmt"

	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/money"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

// Service ties the contract stubs, the synchronizer, and the execution
// pipeline together. All input validation happens here, before any network
// call; the ledger stays the final authority and every confirmed action is
// followed by a resync instead of a local snapshot patch.
type Service struct {
	registry *ledger.RegistryStub
	market   *ledger.MarketStub
	sync     *Synchronizer
	worker   *WorkerClient
	store    ResultStore
	states   StateStore
	notify   *NotifyQueue
	session  *wallet.Session

	transcriptDir string
}

func NewService(registry *ledger.RegistryStub, market *ledger.MarketStub, sync *Synchronizer,
	worker *WorkerClient, store ResultStore, states StateStore, session *wallet.Session, transcriptDir string) *Service {
	return &Service{
		registry:      registry,
		market:        market,
		sync:          sync,
		worker:        worker,
		store:         store,
		states:        states,
		notify:        NewNotifyQueue(),
		session:       session,
		transcriptDir: transcriptDir,
	}
}

func (s *Service) Snapshot() *Snapshot {
	return s.sync.Current()
}

// Resync forces a synchronous cycle, used by one-shot CLI commands that
// have no background poll loop.
func (s *Service) Resync(ctx context.Context) error {
	return s.sync.SyncOnce(ctx)
}

func (s *Service) Notifications() []models.Notification {
	return s.notify.List()
}

func (s *Service) RegisterGpu(ctx context.Context, model string, vramGB int64, priceXLM string) (int64, error) {
	if model == "" {
		return 0, xerrors.Errorf("gpu model must not be empty: %w", money.ErrInvalidAmount)
	}
	if vramGB <= 0 {
		return 0, xerrors.Errorf("vram must be positive, got %d: %w", vramGB, money.ErrInvalidAmount)
	}
	price, err := money.ToStroops(priceXLM)
	if err != nil {
		return 0, err
	}

	gpuID, err := s.registry.RegisterGpu(ctx, model, vramGB, price)
	if err != nil {
		return 0, err
	}

	s.notify.Push(fmt.Sprintf("GPU %d registered: %s", gpuID, model))
	s.sync.Kick()
	return gpuID, nil
}

func (s *Service) SetAvailability(ctx context.Context, gpuID int64, available bool) error {
	if err := s.registry.SetAvailability(ctx, gpuID, available); err != nil {
		return err
	}

	state := "unavailable"
	if available {
		state = "available"
	}
	s.notify.Push(fmt.Sprintf("GPU %d is now %s", gpuID, state))
	s.sync.Kick()
	return nil
}

func (s *Service) UpdatePrice(ctx context.Context, gpuID int64, priceXLM string) error {
	price, err := money.ToStroops(priceXLM)
	if err != nil {
		return err
	}
	if err := s.registry.UpdatePrice(ctx, gpuID, price); err != nil {
		return err
	}

	s.notify.Push(fmt.Sprintf("GPU %d price updated to %s XLM/h", gpuID, money.ToXLM(price)))
	s.sync.Kick()
	return nil
}

func (s *Service) PostJob(ctx context.Context, gpuID int64, description string, computeHours int64) (int64, error) {
	if computeHours <= 0 {
		return 0, xerrors.Errorf("compute hours must be positive, got %d: %w", computeHours, money.ErrInvalidAmount)
	}
	gpu, err := s.registry.GetGpu(ctx, gpuID)
	if err != nil {
		return 0, xerrors.Errorf("resolving gpu %d: %w", gpuID, err)
	}

	jobID, err := s.market.PostJob(ctx, gpuID, description, computeHours)
	if err != nil {
		return 0, err
	}

	cost := gpu.PricePerHour * computeHours
	s.notify.Push(fmt.Sprintf("Job %d posted on %s for %s XLM", jobID, gpu.Model, money.ToXLM(cost)))
	s.sync.Kick()
	return jobID, nil
}

func (s *Service) ClaimJob(ctx context.Context, jobID int64) error {
	if job, ok := s.sync.FindJob(jobID); ok {
		if err := job.EnsureClaimable(); err != nil {
			return err
		}
	}

	if err := s.market.ClaimJob(ctx, jobID); err != nil {
		return err
	}

	s.notify.Push(fmt.Sprintf("Job %d claimed", jobID))
	s.sync.Kick()
	return nil
}

func (s *Service) CancelJob(ctx context.Context, jobID int64) error {
	if job, ok := s.sync.FindJob(jobID); ok {
		if err := job.EnsureCancellable(); err != nil {
			return err
		}
	}

	if err := s.market.CancelJob(ctx, jobID); err != nil {
		return err
	}

	s.notify.Push(fmt.Sprintf("Job %d cancelled, escrow refunded", jobID))
	s.sync.Kick()
	return nil
}

// CompleteJob finalizes a job with an externally supplied result
// reference, without running the worker.
func (s *Service) CompleteJob(ctx context.Context, jobID int64, resultRef string) error {
	if resultRef == "" {
		return xerrors.Errorf("job %d: result reference must not be empty: %w", jobID, models.ErrInvalidTransition)
	}
	if job, ok := s.sync.FindJob(jobID); ok {
		if err := job.EnsureCompletable(); err != nil {
			return err
		}
	}

	if err := s.market.CompleteJob(ctx, jobID, resultRef); err != nil {
		return err
	}

	if err := s.states.Delete(jobID); err != nil {
		logs.GetLogger().Warnf("clearing exec state for job %d: %v", jobID, err)
	}
	s.notify.Push(fmt.Sprintf("Job %d completed", jobID))
	s.sync.Kick()
	return nil
}

// PlatformFees reads the accumulated platform fee balance.
func (s *Service) PlatformFees(ctx context.Context) (int64, error) {
	return s.market.GetPlatformFees(ctx)
}

// EarningsSummary is the provider-side derived view over the current
// snapshot. Nothing here is ledger state; shares are display math.
type EarningsSummary struct {
	CompletedJobs int    `json:"completed_jobs"`
	ActiveJobs    int    `json:"active_jobs"`
	TotalJobs     int    `json:"total_jobs"`
	EarnedXLM     string `json:"earned_xlm"`
}

func (s *Service) Earnings() EarningsSummary {
	snap := s.sync.Current()

	var summary EarningsSummary
	var earned int64
	for _, job := range snap.ProviderJobs {
		summary.TotalJobs++
		switch job.Status {
		case models.JobStatusCompleted:
			summary.CompletedJobs++
			share, _ := money.SplitStroops(job.PaymentAmount)
			earned += share
		case models.JobStatusClaimed:
			summary.ActiveJobs++
		}
	}
	summary.EarnedXLM = money.ToXLM(earned)
	return summary
}
