package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/carrotlabs/go-carrot-market/internal/market"
)

func MarketManager(router *gin.RouterGroup, service *market.Service) {

	router.GET("/snapshot", service.GetSnapshot)
	router.GET("/notifications", service.GetNotifications)
	router.GET("/earnings", service.GetEarnings)
	router.GET("/fees", service.GetPlatformFees)

	router.POST("/gpus", service.RegisterGpuHandler)
	router.PUT("/gpus/:id/availability", service.SetAvailabilityHandler)
	router.PUT("/gpus/:id/price", service.UpdatePriceHandler)

	router.POST("/jobs", service.PostJobHandler)
	router.POST("/jobs/:id/claim", service.ClaimJobHandler)
	router.POST("/jobs/:id/cancel", service.CancelJobHandler)
	router.POST("/jobs/:id/run", service.RunJobHandler)
	router.POST("/jobs/:id/complete", service.CompleteJobHandler)
	router.POST("/jobs/:id/retry", service.RetryFinalizeHandler)
	router.GET("/jobs/:id/transcript", service.GetTranscript)
}
