package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

const defaultFetchConcurrency = 8

// Snapshot is one consistent view of the marketplace. It is immutable once
// published; the synchronizer replaces it wholesale and never patches a
// published snapshot in place.
type Snapshot struct {
	MyGPUs        []models.GPU
	AvailableGPUs []models.GPU
	OpenJobs      []models.Job
	ConsumerJobs  []models.Job
	ProviderJobs  []models.Job
	SyncedAt      time.Time
}

// Synchronizer re-derives the marketplace state from the ledger on a fixed
// interval. The ledger only exposes enumerable id counters and per-id
// getters, so every cycle is a full scan.
type Synchronizer struct {
	registry    *ledger.RegistryStub
	market      *ledger.MarketStub
	session     *wallet.Session
	interval    time.Duration
	concurrency int

	current atomic.Value // *Snapshot
	kick    chan struct{}

	mu       sync.Mutex
	inFlight bool
}

func NewSynchronizer(registry *ledger.RegistryStub, market *ledger.MarketStub, session *wallet.Session, interval time.Duration, concurrency int) *Synchronizer {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	s := &Synchronizer{
		registry:    registry,
		market:      market,
		session:     session,
		interval:    interval,
		concurrency: concurrency,
		kick:        make(chan struct{}, 1),
	}
	s.current.Store(&Snapshot{})
	return s
}

// Current returns the last published snapshot. Never nil.
func (s *Synchronizer) Current() *Snapshot {
	return s.current.Load().(*Snapshot)
}

// Kick requests an out-of-band cycle, used after every confirmed
// state-changing action. Never blocks; a pending kick is enough.
func (s *Synchronizer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run drives the poll loop until the context ends. A failed cycle keeps
// the previous snapshot and waits for the next tick.
func (s *Synchronizer) Run(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		logs.GetLogger().Errorf("initial marketplace sync failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}

		if err := s.SyncOnce(ctx); err != nil {
			logs.GetLogger().Errorf("marketplace sync failed: %v", err)
		}
	}
}

// SyncOnce runs a single cycle. If a cycle is already in flight the call
// coalesces into it and returns immediately; two full scans of the same
// scope never run concurrently.
func (s *Synchronizer) SyncOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	snap := &Snapshot{SyncedAt: time.Now()}

	gpus, err := s.fetchAllGPUs(ctx)
	if err != nil {
		return xerrors.Errorf("fetching gpus: %w", err)
	}
	for _, gpu := range gpus {
		if s.session != nil && gpu.Provider == s.session.Address {
			snap.MyGPUs = append(snap.MyGPUs, gpu)
		}
		if gpu.Available {
			snap.AvailableGPUs = append(snap.AvailableGPUs, gpu)
		}
	}

	jobs, err := s.fetchAllJobs(ctx)
	if err != nil {
		return xerrors.Errorf("fetching jobs: %w", err)
	}
	for _, job := range jobs {
		if job.Status == models.JobStatusOpen {
			snap.OpenJobs = append(snap.OpenJobs, job)
		}
		if s.session != nil && job.Consumer == s.session.Address {
			snap.ConsumerJobs = append(snap.ConsumerJobs, job)
		}
		if s.session != nil && job.Provider == s.session.Address {
			snap.ProviderJobs = append(snap.ProviderJobs, job)
		}
	}

	s.current.Store(snap)
	return nil
}

// fetchAllGPUs enumerates [0, nextGpuId). Ids the ledger reports as absent
// are holes, not failures.
func (s *Synchronizer) fetchAllGPUs(ctx context.Context) ([]models.GPU, error) {
	next, err := s.registry.GetNextGpuId(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*models.GPU, next)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for id := int64(0); id < next; id++ {
		id := id
		eg.Go(func() error {
			gpu, err := s.registry.GetGpu(egCtx, id)
			if err != nil {
				if xerrors.Is(err, ledger.ErrAbsent) {
					return nil
				}
				return err
			}
			results[id] = gpu
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	gpus := make([]models.GPU, 0, next)
	for _, gpu := range results {
		if gpu != nil {
			gpus = append(gpus, *gpu)
		}
	}
	return gpus, nil
}

func (s *Synchronizer) fetchAllJobs(ctx context.Context) ([]models.Job, error) {
	next, err := s.market.GetNextJobId(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*models.Job, next)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for id := int64(0); id < next; id++ {
		id := id
		eg.Go(func() error {
			job, err := s.market.GetJob(egCtx, id)
			if err != nil {
				if xerrors.Is(err, ledger.ErrAbsent) {
					return nil
				}
				return err
			}
			results[id] = job
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	jobs := make([]models.Job, 0, next)
	for _, job := range results {
		if job != nil {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

// FindJob looks a job up in the current snapshot.
func (s *Synchronizer) FindJob(jobID int64) (*models.Job, bool) {
	snap := s.Current()
	for _, list := range [][]models.Job{snap.OpenJobs, snap.ConsumerJobs, snap.ProviderJobs} {
		for i := range list {
			if list[i].ID == jobID {
				job := list[i]
				return &job, true
			}
		}
	}
	return nil, false
}
