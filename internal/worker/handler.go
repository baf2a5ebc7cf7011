package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-gonic/gin"

	"github.com/carrotlabs/go-carrot-market/models"
)

// Handler serves the worker's request/response boundary: a health probe
// and the process-job endpoint.
type Handler struct {
	uploader *McsUploader
	runImage func(ctx context.Context, imageName, outputDir string) (string, error)
}

func NewHandler(docker *DockerService, uploader *McsUploader) *Handler {
	h := &Handler{uploader: uploader}
	if docker != nil {
		h.runImage = docker.RunImage
	}
	return h
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ProcessJob(c *gin.Context) {
	var req models.WorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.WorkerResponse{Error: err.Error()})
		return
	}

	logs.GetLogger().Infof("processing job %d, kind: %s", req.JobID, req.Kind)

	var resp models.WorkerResponse
	switch req.Kind {
	case models.JobKindScripted:
		resp = h.runScripted(req)
	case models.JobKindContainerized:
		resp = h.runContainerized(c, req)
	default:
		resp = models.WorkerResponse{
			Success:    true,
			Transcript: fmt.Sprintf("job %d: %s", req.JobID, req.Payload),
			Result:     fmt.Sprintf("completed: %s", req.Payload),
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) runScripted(req models.WorkerRequest) models.WorkerResponse {
	transcript, result, err := RunScript(req.Payload)
	if err != nil {
		return models.WorkerResponse{
			Transcript: transcript,
			Error:      fmt.Sprintf("script failed: %v", err),
		}
	}
	return models.WorkerResponse{Success: true, Transcript: transcript, Result: result}
}

func (h *Handler) runContainerized(c *gin.Context, req models.WorkerRequest) models.WorkerResponse {
	if h.runImage == nil {
		return models.WorkerResponse{Error: "docker is not available on this worker"}
	}

	outputDir, err := os.MkdirTemp("", fmt.Sprintf("job-%d-output", req.JobID))
	if err != nil {
		return models.WorkerResponse{Error: err.Error()}
	}
	defer os.RemoveAll(outputDir)

	transcript, err := h.runImage(c.Request.Context(), req.Payload, outputDir)
	if err != nil {
		return models.WorkerResponse{
			Transcript: transcript,
			Error:      fmt.Sprintf("container run failed: %v", err),
		}
	}

	// a produced artifact gets uploaded directly; the client sees only the
	// locator and skips its own upload step
	if h.uploader != nil {
		if artifact := firstArtifact(outputDir); artifact != "" {
			locator, err := h.uploader.UploadArtifact(req.JobID, artifact)
			if err != nil {
				logs.GetLogger().Warnf("artifact upload for job %d failed: %v", req.JobID, err)
			} else {
				return models.WorkerResponse{Success: true, Transcript: transcript, Result: locator}
			}
		}
	}

	// no artifact to hand over; the transcript already carries the full
	// container output, so the result is just the exit status
	return models.WorkerResponse{
		Success:    true,
		Transcript: transcript,
		Result:     fmt.Sprintf("container %s exited with code 0, no artifact produced", req.Payload),
	}
}

func firstArtifact(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(dir, entry.Name())
		}
	}
	return ""
}
