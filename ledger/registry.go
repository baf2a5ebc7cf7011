package ledger

import (
	"context"
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

// RegistryStub mirrors the GPU registry contract.
type RegistryStub struct {
	backend  Backend
	contract string
	session  *wallet.Session
}

type RegistryOption func(*RegistryStub)

func WithRegistrySession(session *wallet.Session) RegistryOption {
	return func(s *RegistryStub) {
		s.session = session
	}
}

func NewRegistryStub(backend Backend, contract string, opts ...RegistryOption) *RegistryStub {
	stub := &RegistryStub{
		backend:  backend,
		contract: contract,
	}
	for _, opt := range opts {
		opt(stub)
	}
	return stub
}

func (s *RegistryStub) RegisterGpu(ctx context.Context, model string, vramGB, pricePerHour int64) (int64, error) {
	raw, err := s.backend.SignedCall(ctx, s.session, s.contract, "register_gpu", model, vramGB, pricePerHour)
	if err != nil {
		return 0, err
	}
	return decodeID(raw, "register_gpu")
}

func (s *RegistryStub) SetAvailability(ctx context.Context, gpuID int64, available bool) error {
	_, err := s.backend.SignedCall(ctx, s.session, s.contract, "set_availability", gpuID, available)
	return err
}

func (s *RegistryStub) UpdatePrice(ctx context.Context, gpuID, newPrice int64) error {
	_, err := s.backend.SignedCall(ctx, s.session, s.contract, "update_price", gpuID, newPrice)
	return err
}

func (s *RegistryStub) GetGpu(ctx context.Context, gpuID int64) (*models.GPU, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_gpu", gpuID)
	if err != nil {
		return nil, err
	}
	var gpu models.GPU
	if err := json.Unmarshal(raw, &gpu); err != nil {
		return nil, xerrors.Errorf("decoding gpu %d: %w", gpuID, err)
	}
	return &gpu, nil
}

func (s *RegistryStub) GetProviderGpus(ctx context.Context, provider string) ([]int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_provider_gpus", provider)
	if err != nil {
		return nil, err
	}
	return decodeIDList(raw, "get_provider_gpus")
}

func (s *RegistryStub) GetNextGpuId(ctx context.Context) (int64, error) {
	raw, err := s.backend.ReadCall(ctx, s.contract, "get_next_gpu_id")
	if err != nil {
		return 0, err
	}
	return decodeID(raw, "get_next_gpu_id")
}

func decodeID(raw json.RawMessage, method string) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, xerrors.Errorf("decoding %s result: %w", method, err)
	}
	return id, nil
}

func decodeIDList(raw json.RawMessage, method string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, xerrors.Errorf("decoding %s result: %w", method, err)
	}
	return ids, nil
}
