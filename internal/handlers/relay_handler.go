package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-ticketprint/internal/validation"
)

// Sender publishes a JSON message. *aws.Publisher satisfies it.
type Sender interface {
	SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error
}

// RelayConfig groups dependencies for the cloud relay routes.
type RelayConfig struct {
	Publisher Sender
	Secret    string
	Log       zerolog.Logger
}

// RegisterRelayRoutes registers POST /print and GET /health for the relay:
// requests are authenticated and validated, then queued for the shop's
// print server instead of being printed.
func RegisterRelayRoutes(r *gin.Engine, cfg RelayConfig) {
	v := validation.New()

	r.POST("/print", func(c *gin.Context) {
		var req validation.PrintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}
		if !authorized(cfg.Secret, req.Secret, c.GetHeader(SecretHeader)) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := validation.Validate(c, &req, v); err != nil {
			return
		}

		orderID := string(req.Order.OrderID)
		if req.Order.CorrelationID == "" {
			req.Order.CorrelationID = c.GetHeader(CorrelationHeader)
		}
		attrs := map[string]string{
			"order_id":       orderID,
			"correlation_id": req.Order.CorrelationID,
		}
		if err := cfg.Publisher.SendJSON(c.Request.Context(), req.Order, attrs); err != nil {
			cfg.Log.Error().Err(err).Str("order_id", orderID).Msg("enqueue failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed", "orderId": orderID})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "orderId": orderID, "queued": true})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
