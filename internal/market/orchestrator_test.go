package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/models"
)

type fakeStore struct {
	fail  bool
	calls int32
}

func (f *fakeStore) Store(ctx context.Context, jobID int64, transcript, rawResult string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fail {
		return "", xerrors.Errorf("bucket upload refused: %w", ErrStorageFailed)
	}
	return fmt.Sprintf("ipfs://bafyjob%d", jobID), nil
}

type workerBehavior struct {
	requests []models.WorkerRequest
	respond  func(req models.WorkerRequest) models.WorkerResponse
}

func newTestWorker(t *testing.T, behavior *workerBehavior) *WorkerClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/process-job":
			var req models.WorkerRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			behavior.requests = append(behavior.requests, req)
			json.NewEncoder(w).Encode(behavior.respond(req))
		default:
			t.Errorf("unexpected worker path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return NewWorkerClient(srv.URL)
}

func newTestService(t *testing.T, fake *fakeLedger, worker *WorkerClient, store ResultStore) *Service {
	t.Helper()
	session := testSession()
	registry := ledger.NewRegistryStub(fake, registryContract, ledger.WithRegistrySession(session))
	market := ledger.NewMarketStub(fake, marketContract, ledger.WithMarketSession(session))
	sync := NewSynchronizer(registry, market, session, time.Second, 4)
	return NewService(registry, market, sync, worker, store, NewMemoryStateStore(), session, t.TempDir())
}

func TestRunScriptedJob(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, `{"kind":"scripted","description":"matmul","code":"print(6*7)"}`, 4)

	behavior := &workerBehavior{
		respond: func(req models.WorkerRequest) models.WorkerResponse {
			return models.WorkerResponse{Success: true, Transcript: "42\n", Result: "42"}
		},
	}
	store := &fakeStore{}
	svc := newTestService(t, fake, newTestWorker(t, behavior), store)

	require.NoError(t, svc.ClaimJob(context.Background(), jobID))
	require.NoError(t, svc.RunJob(context.Background(), jobID))

	// the worker got the decoded code payload
	require.Len(t, behavior.requests, 1)
	assert.Equal(t, models.JobKindScripted, behavior.requests[0].Kind)
	assert.Equal(t, "print(6*7)", behavior.requests[0].Payload)

	// finalized on the ledger with the stored locator
	job := fake.job(jobID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, fmt.Sprintf("ipfs://bafyjob%d", jobID), job.ResultHash)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.calls))

	// transient state discarded after confirmation
	state, err := svc.states.Load(jobID)
	require.NoError(t, err)
	assert.Nil(t, state)

	// transcript landed on disk
	content, err := os.ReadFile(svc.TranscriptPath(jobID))
	require.NoError(t, err)
	assert.Equal(t, "42\n", string(content))
}

func TestRunSimpleJobSkipsWorker(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, "just verify the rig works", 1)

	behavior := &workerBehavior{
		respond: func(req models.WorkerRequest) models.WorkerResponse {
			t.Error("worker must not be invoked for a simple job")
			return models.WorkerResponse{}
		},
	}
	svc := newTestService(t, fake, newTestWorker(t, behavior), &fakeStore{})

	require.NoError(t, svc.ClaimJob(context.Background(), jobID))
	require.NoError(t, svc.RunJob(context.Background(), jobID))

	assert.Empty(t, behavior.requests)
	assert.Equal(t, models.JobStatusCompleted, fake.job(jobID).Status)
}

func TestRunJobWorkerUploadedDirectly(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, `{"kind":"containerized","description":"render","image":"blender:latest"}`, 2)

	behavior := &workerBehavior{
		respond: func(req models.WorkerRequest) models.WorkerResponse {
			return models.WorkerResponse{Success: true, Transcript: "rendered 120 frames", Result: "ipfs://bafyrendered"}
		},
	}
	store := &fakeStore{}
	svc := newTestService(t, fake, newTestWorker(t, behavior), store)

	require.NoError(t, svc.ClaimJob(context.Background(), jobID))
	require.NoError(t, svc.RunJob(context.Background(), jobID))

	// the locator from the worker is used as-is, no second upload
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.calls))
	assert.Equal(t, "ipfs://bafyrendered", fake.job(jobID).ResultHash)
}

// Queued task args round-trip through JSON and come back as float64, and
// the celery dispatcher only converts them to plain int before the
// reflective call. The entrypoint must therefore take int, not int64, or
// the dispatch panics and takes the daemon down with it.
func TestExecutionTaskAcceptsQueuedArg(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, "just verify the rig works", 1)

	svc := newTestService(t, fake, nil, &fakeStore{})
	require.NoError(t, svc.ClaimJob(context.Background(), jobID))

	var args []interface{}
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf("[%d]", jobID)), &args))
	queued, ok := args[0].(float64)
	require.True(t, ok)

	task := reflect.ValueOf(svc.executionTask)
	require.Equal(t, reflect.Int, task.Type().In(0).Kind())

	out := task.Call([]reflect.Value{reflect.ValueOf(int(queued))})
	require.True(t, out[0].IsNil())
	assert.Equal(t, models.JobStatusCompleted, fake.job(jobID).Status)
}

func TestCompleteOnOpenJobRejected(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, "never claimed", 1)

	svc := newTestService(t, fake, nil, &fakeStore{})
	require.NoError(t, svc.sync.SyncOnce(context.Background()))

	err := svc.CompleteJob(context.Background(), jobID, "ipfs://bafyproof")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// rejected locally: ledger untouched, no success notification
	assert.Equal(t, models.JobStatusOpen, fake.job(jobID).Status)
	assert.Empty(t, svc.Notifications())
}

func TestRunJobOnOpenJobRejected(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, "never claimed", 1)

	svc := newTestService(t, fake, nil, &fakeStore{})

	err := svc.RunJob(context.Background(), jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestStorageFailureRetainsStateForRetry(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, `{"kind":"scripted","description":"sum","code":"print(1+1)"}`, 1)

	behavior := &workerBehavior{
		respond: func(req models.WorkerRequest) models.WorkerResponse {
			return models.WorkerResponse{Success: true, Transcript: "2\n", Result: "2"}
		},
	}
	store := &fakeStore{fail: true}
	svc := newTestService(t, fake, newTestWorker(t, behavior), store)

	require.NoError(t, svc.ClaimJob(context.Background(), jobID))

	err := svc.RunJob(context.Background(), jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFailed)

	// job stays Claimed, execution result retained
	assert.Equal(t, models.JobStatusClaimed, fake.job(jobID).Status)
	state, err := svc.states.Load(jobID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "2", state.RawResult)

	// retry finalization without re-running the worker
	store.fail = false
	require.NoError(t, svc.RetryFinalize(context.Background(), jobID))
	assert.Equal(t, models.JobStatusCompleted, fake.job(jobID).Status)
	assert.Len(t, behavior.requests, 1)
}

func TestWorkerUnavailable(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, `{"kind":"scripted","description":"x","code":"pass"}`, 1)

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nobody listening

	svc := newTestService(t, fake, NewWorkerClient(srv.URL), &fakeStore{})
	require.NoError(t, svc.ClaimJob(context.Background(), jobID))

	err := svc.RunJob(context.Background(), jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
	assert.Equal(t, models.JobStatusClaimed, fake.job(jobID).Status)
}

func TestWorkerReportedFailure(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, `{"kind":"scripted","description":"boom","code":"raise"}`, 1)

	behavior := &workerBehavior{
		respond: func(req models.WorkerRequest) models.WorkerResponse {
			return models.WorkerResponse{Success: false, Transcript: "Traceback...", Error: "RuntimeError"}
		},
	}
	svc := newTestService(t, fake, newTestWorker(t, behavior), &fakeStore{})
	require.NoError(t, svc.ClaimJob(context.Background(), jobID))

	err := svc.RunJob(context.Background(), jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Contains(t, err.Error(), "RuntimeError")
	assert.Equal(t, models.JobStatusClaimed, fake.job(jobID).Status)
}

func TestClaimAlreadyClaimedRejectedLocally(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GOTHER", "A100", 25_000_000, true)
	jobID := fake.addJob("GCONSUMER", 0, "render", 1)

	svc := newTestService(t, fake, nil, &fakeStore{})
	require.NoError(t, svc.ClaimJob(context.Background(), jobID))
	require.NoError(t, svc.sync.SyncOnce(context.Background()))

	err := svc.ClaimJob(context.Background(), jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAlreadyClaimed)
}

func TestPostJobValidation(t *testing.T) {
	fake := newFakeLedger()
	gpuID := fake.addGpu("GOTHER", "A100", 25_000_000, true)

	svc := newTestService(t, fake, nil, &fakeStore{})

	_, err := svc.PostJob(context.Background(), gpuID, "render", 0)
	require.Error(t, err)

	_, err = svc.PostJob(context.Background(), 404, "render", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAbsent)

	jobID, err := svc.PostJob(context.Background(), gpuID, "render", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), fake.job(jobID).PaymentAmount)
}

func TestEarningsSummary(t *testing.T) {
	fake := newFakeLedger()
	fake.addGpu("GME", "RTX 4090", 25_000_000, true)
	done := fake.addJob("GCONSUMER", 0, "a", 4)
	active := fake.addJob("GCONSUMER", 0, "b", 2)

	svc := newTestService(t, fake, nil, &fakeStore{})
	require.NoError(t, svc.ClaimJob(context.Background(), done))
	require.NoError(t, svc.CompleteJob(context.Background(), done, "ipfs://bafyproof"))
	require.NoError(t, svc.ClaimJob(context.Background(), active))
	require.NoError(t, svc.sync.SyncOnce(context.Background()))

	summary := svc.Earnings()
	assert.Equal(t, 1, summary.CompletedJobs)
	assert.Equal(t, 1, summary.ActiveJobs)
	assert.Equal(t, 2, summary.TotalJobs)
	// 10 XLM payment, provider keeps 95%
	assert.Equal(t, "9.5000000", summary.EarnedXLM)
}
