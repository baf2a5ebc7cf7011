package market

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/models"
)

// WorkerClient talks to the execution worker service. The worker is probed
// before every dispatch so an unreachable worker is reported distinctly
// from a job that ran and failed.
type WorkerClient struct {
	baseUrl string
	client  *http.Client
}

func NewWorkerClient(baseUrl string) *WorkerClient {
	return &WorkerClient{
		baseUrl: baseUrl,
		// job runs can legitimately take a while
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// Probe checks the worker's health endpoint.
func (w *WorkerClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseUrl+"/health", nil)
	if err != nil {
		return err
	}

	probeClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := probeClient.Do(req)
	if err != nil {
		return xerrors.Errorf("probing %s: %s: %w", w.baseUrl, err, ErrWorkerUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return xerrors.Errorf("probing %s: http %d: %w", w.baseUrl, resp.StatusCode, ErrWorkerUnavailable)
	}
	return nil
}

// Process dispatches a decoded job to the worker and returns its verdict.
func (w *WorkerClient) Process(ctx context.Context, request models.WorkerRequest) (*models.WorkerResponse, error) {
	if err := w.Probe(ctx); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseUrl+"/process-job", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("dispatching job %d: %s: %w", request.JobID, err, ErrWorkerUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, xerrors.Errorf("job %d: worker http %d: %s: %w", request.JobID, resp.StatusCode, string(raw), ErrExecutionFailed)
	}

	var result models.WorkerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, xerrors.Errorf("decoding worker response for job %d: %w", request.JobID, err)
	}
	if !result.Success {
		return &result, xerrors.Errorf("job %d: %s: %w", request.JobID, result.Error, ErrExecutionFailed)
	}
	return &result, nil
}
