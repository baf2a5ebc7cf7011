package market

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/money"
	"github.com/carrotlabs/go-carrot-market/util"
)

func (s *Service) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.Snapshot()))
}

func (s *Service) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.Notifications()))
}

func (s *Service) GetEarnings(c *gin.Context) {
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.Earnings()))
}

func (s *Service) GetPlatformFees(c *gin.Context) {
	fees, err := s.PlatformFees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(gin.H{
		"platform_fees":     fees,
		"platform_fees_xlm": money.ToXLM(fees),
	}))
}

type registerGpuRequest struct {
	Model        string `json:"model"`
	VramGB       int64  `json:"vram_gb"`
	PricePerHour string `json:"price_per_hour"`
}

func (s *Service) RegisterGpuHandler(c *gin.Context) {
	var req registerGpuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}

	gpuID, err := s.RegisterGpu(c.Request.Context(), req.Model, req.VramGB, req.PricePerHour)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(gin.H{"gpu_id": gpuID}))
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

func (s *Service) SetAvailabilityHandler(c *gin.Context) {
	gpuID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}

	if err := s.SetAvailability(c.Request.Context(), gpuID, req.Available); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

type updatePriceRequest struct {
	PricePerHour string `json:"price_per_hour"`
}

func (s *Service) UpdatePriceHandler(c *gin.Context) {
	gpuID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}

	if err := s.UpdatePrice(c.Request.Context(), gpuID, req.PricePerHour); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

type postJobRequest struct {
	GpuID        int64  `json:"gpu_id"`
	Description  string `json:"description"`
	ComputeHours int64  `json:"compute_hours"`
}

func (s *Service) PostJobHandler(c *gin.Context) {
	var req postJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}

	jobID, err := s.PostJob(c.Request.Context(), req.GpuID, req.Description, req.ComputeHours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(gin.H{"job_id": jobID}))
}

func (s *Service) ClaimJobHandler(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.ClaimJob(c.Request.Context(), jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

func (s *Service) CancelJobHandler(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.CancelJob(c.Request.Context(), jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

// RunJobHandler queues the execution pipeline for a claimed job.
func (s *Service) RunJobHandler(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.RunJobAsync(jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(gin.H{"job_id": jobID, "queued": true}))
}

type completeJobRequest struct {
	ResultRef string `json:"result_ref"`
}

func (s *Service) CompleteJobHandler(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req completeJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}

	if err := s.CompleteJob(c.Request.Context(), jobID, req.ResultRef); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

func (s *Service) RetryFinalizeHandler(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.RetryFinalize(c.Request.Context(), jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(nil))
}

// GetTranscript upgrades to a websocket and streams the job's transcript.
func (s *Service) GetTranscript(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}

	conn, err := upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.BadParamError, err.Error()))
		return
	}

	client := NewWsClient(conn)
	client.HandleTranscript(s.TranscriptPath(jobID))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.BadParamError, "malformed id"))
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, money.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.BadParamError, err.Error()))
	case xerrors.Is(err, models.ErrAlreadyClaimed), xerrors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, util.CreateErrorResponse(util.TransitionError, err.Error()))
	case xerrors.Is(err, ledger.ErrAbsent):
		c.JSON(http.StatusNotFound, util.CreateErrorResponse(util.NotFoundError, err.Error()))
	case xerrors.Is(err, ledger.ErrIndeterminate):
		c.JSON(http.StatusAccepted, util.CreateErrorResponse(util.IndeterminateError, err.Error()))
	case xerrors.Is(err, ErrWorkerUnavailable):
		c.JSON(http.StatusServiceUnavailable, util.CreateErrorResponse(util.WorkerProbeError, err.Error()))
	case xerrors.Is(err, ErrExecutionFailed):
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.ExecutionError, err.Error()))
	case xerrors.Is(err, ErrStorageFailed):
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.StorageError, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.ContractCallError, err.Error()))
	}
}
