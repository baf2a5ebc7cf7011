package ledger

import (
	"context"
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

// MarketStub mirrors the job marketplace contract. The ledger escrows the
// payment at post time and enforces every lifecycle rule; the stub only
// carries the calls.
type MarketStub struct {
	backend  Backend
	contract string
	session  *wallet.Session
}

type MarketOption func(*MarketStub)

func WithMarketSession(session *wallet.Session) MarketOption {
	return func(s *MarketStub) {
		s.session = session
	}
}

func NewMarketStub(backend Backend, contract string, opts ...MarketOption) *MarketStub {
	stub := &MarketStub{
		backend:  backend,
		contract: contract,
	}
	for _, opt := range opts {
		opt(stub)
	}
	return stub
}

func (s *MarketStub) PostJob(ctx context.Context, gpuID int64, description string, computeHours int64) (int64, error) {
	raw, err := s.backend.SignedCall(ctx, s.session, s.contract, "post_job", gpuID, description, computeHours)
	if err != nil {
		return 0, err
	}
	return decodeID(raw, "post_job")
}

func (s *MarketStub) ClaimJob(ctx context.Context, jobID int64) error {
	_, err := s.backend.SignedCall(ctx, s.session, s.contract, "claim_job", jobID)
	return err
}

func (s *MarketStub) CompleteJob(ctx context.Context, jobID int64, resultHash string) error {
	if resultHash == "" {
		return xerrors.Errorf("complete_job %d: empty result reference: %w", jobID, ErrContractCall)
	}
	_, err := s.backend.SignedCall(ctx, s.session, s.contract, "complete_job", jobID, resultHash)
	return err
}

func (s *MarketStub) CancelJob(ctx context.Context, jobID int64) error {
	_, err := s.backend.SignedCall(ctx, s.session, s.contract, "cancel_job", jobID)
	return err
}

func (s *MarketStub) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_job", jobID)
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, xerrors.Errorf("decoding job %d: %w", jobID, err)
	}
	return &job, nil
}

func (s *MarketStub) GetConsumerJobs(ctx context.Context, consumer string) ([]int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_consumer_jobs", consumer)
	if err != nil {
		return nil, err
	}
	return decodeIDList(raw, "get_consumer_jobs")
}

func (s *MarketStub) GetProviderJobs(ctx context.Context, provider string) ([]int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_provider_jobs", provider)
	if err != nil {
		return nil, err
	}
	return decodeIDList(raw, "get_provider_jobs")
}

func (s *MarketStub) GetNextJobId(ctx context.Context) (int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_next_job_id")
	if err != nil {
		return 0, err
	}
	return decodeID(raw, "get_next_job_id")
}

func (s *MarketStub) GetPlatformFees(ctx context.Context) (int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_platform_fees")
	if err != nil {
		return 0, err
	}
	return decodeID(raw, "get_platform_fees")
}
