package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

const (
	registryContract = "CREGISTRY"
	marketContract   = "CMARKET"
)

// fakeLedger is an in-memory Backend that enforces the same lifecycle
// rules as the marketplace contracts.
type fakeLedger struct {
	mu      sync.Mutex
	gpus    map[int64]*models.GPU
	jobs    map[int64]*models.Job
	nextGpu int64
	nextJob int64
	fees    int64

	absentGpus map[int64]bool
	failReads  bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		gpus:       make(map[int64]*models.GPU),
		jobs:       make(map[int64]*models.Job),
		absentGpus: make(map[int64]bool),
	}
}

func (f *fakeLedger) addGpu(provider, model string, price int64, available bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextGpu
	f.nextGpu++
	f.gpus[id] = &models.GPU{
		ID: id, Provider: provider, Model: model, VramGB: 24,
		PricePerHour: price, Available: available, RegisteredAt: time.Now().Unix(),
	}
	return id
}

func (f *fakeLedger) addJob(consumer string, gpuID int64, description string, hours int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextJob
	f.nextJob++
	f.jobs[id] = &models.Job{
		ID: id, Consumer: consumer, GpuID: gpuID, Description: description,
		ComputeHours: hours, PaymentAmount: f.gpus[gpuID].PricePerHour * hours,
		Status: models.JobStatusOpen, CreatedAt: time.Now().Unix(),
	}
	return id
}

func (f *fakeLedger) job(id int64) models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

func (f *fakeLedger) ReadCall(ctx context.Context, contract, method string, args ...interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failReads {
		return nil, xerrors.Errorf("gateway unreachable: %w", ledger.ErrContractCall)
	}

	switch method {
	case "get_next_gpu_id":
		return json.Marshal(f.nextGpu)
	case "get_gpu":
		id := asID(args[0])
		if f.absentGpus[id] {
			return nil, xerrors.Errorf("gpu %d: %w", id, ledger.ErrAbsent)
		}
		gpu, ok := f.gpus[id]
		if !ok {
			return nil, xerrors.Errorf("gpu %d: %w", id, ledger.ErrAbsent)
		}
		return json.Marshal(gpu)
	case "get_provider_gpus":
		provider := args[0].(string)
		var ids []int64
		for id, gpu := range f.gpus {
			if gpu.Provider == provider {
				ids = append(ids, id)
			}
		}
		return json.Marshal(ids)
	case "get_next_job_id":
		return json.Marshal(f.nextJob)
	case "get_job":
		id := asID(args[0])
		job, ok := f.jobs[id]
		if !ok {
			return nil, xerrors.Errorf("job %d: %w", id, ledger.ErrAbsent)
		}
		return json.Marshal(job)
	case "get_platform_fees":
		return json.Marshal(f.fees)
	}
	return nil, xerrors.Errorf("unknown method %s: %w", method, ledger.ErrContractCall)
}

func (f *fakeLedger) SignedCall(ctx context.Context, session *wallet.Session, contract, method string, args ...interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session == nil {
		return nil, xerrors.Errorf("no session: %w", ledger.ErrContractCall)
	}

	switch method {
	case "register_gpu":
		id := f.nextGpu
		f.nextGpu++
		f.gpus[id] = &models.GPU{
			ID: id, Provider: session.Address, Model: args[0].(string),
			VramGB: asID(args[1]), PricePerHour: asID(args[2]),
			Available: true, RegisteredAt: time.Now().Unix(),
		}
		return json.Marshal(id)
	case "set_availability":
		gpu, ok := f.gpus[asID(args[0])]
		if !ok {
			return nil, xerrors.Errorf("no such gpu: %w", ledger.ErrContractCall)
		}
		gpu.Available = args[1].(bool)
		return json.Marshal(nil)
	case "update_price":
		gpu, ok := f.gpus[asID(args[0])]
		if !ok {
			return nil, xerrors.Errorf("no such gpu: %w", ledger.ErrContractCall)
		}
		gpu.PricePerHour = asID(args[1])
		return json.Marshal(nil)
	case "post_job":
		gpu, ok := f.gpus[asID(args[0])]
		if !ok {
			return nil, xerrors.Errorf("no such gpu: %w", ledger.ErrContractCall)
		}
		id := f.nextJob
		f.nextJob++
		f.jobs[id] = &models.Job{
			ID: id, Consumer: session.Address, GpuID: gpu.ID,
			Description: args[1].(string), ComputeHours: asID(args[2]),
			PaymentAmount: gpu.PricePerHour * asID(args[2]),
			Status:        models.JobStatusOpen, CreatedAt: time.Now().Unix(),
		}
		return json.Marshal(id)
	case "claim_job":
		job, ok := f.jobs[asID(args[0])]
		if !ok || job.Status != models.JobStatusOpen {
			return nil, xerrors.Errorf("job not open: %w", ledger.ErrContractCall)
		}
		job.Status = models.JobStatusClaimed
		job.Provider = session.Address
		job.ClaimedAt = time.Now().Unix()
		return json.Marshal(nil)
	case "complete_job":
		job, ok := f.jobs[asID(args[0])]
		if !ok || job.Status != models.JobStatusClaimed {
			return nil, xerrors.Errorf("job not claimed: %w", ledger.ErrContractCall)
		}
		job.Status = models.JobStatusCompleted
		job.ResultHash = args[1].(string)
		job.CompletedAt = time.Now().Unix()
		f.gpus[job.GpuID].TotalJobs++
		f.fees += job.PaymentAmount * 5 / 100
		return json.Marshal(nil)
	case "cancel_job":
		job, ok := f.jobs[asID(args[0])]
		if !ok || job.Status != models.JobStatusOpen {
			return nil, xerrors.Errorf("job not open: %w", ledger.ErrContractCall)
		}
		job.Status = models.JobStatusCancelled
		return json.Marshal(nil)
	}
	return nil, xerrors.Errorf("unknown method %s: %w", method, ledger.ErrContractCall)
}

func asID(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return -1
}
