package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
	"github.com/imrishuroy/go-ticketprint/internal/orders"
	"github.com/imrishuroy/go-ticketprint/internal/service"
	"github.com/imrishuroy/go-ticketprint/internal/validation"
)

// SecretHeader may carry the shared secret instead of the request body.
const SecretHeader = "X-Printer-Secret"

// CorrelationHeader names the request id carried into outcome notifications
// when the order has none of its own.
const CorrelationHeader = "X-Request-Id"

// Printing is the print service as seen by HTTP.
type Printing interface {
	HandlePrintRequest(ctx context.Context, o orders.Order) (service.Outcome, error)
	Status() dispatch.Status
}

// HandlerConfig groups dependencies for the print routes.
type HandlerConfig struct {
	Service Printing
	// Secret is compared with the request secret. Empty disables the check.
	Secret   string
	Title    string
	Gatherer prometheus.Gatherer // nil uses the default registry
	Log      zerolog.Logger
	Now      func() time.Time
}

// RegisterPrintRoutes registers POST /print, GET /health, GET /test, GET / and GET /metrics.
func RegisterPrintRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Title == "" {
		cfg.Title = "Ticket printer"
	}

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
			// Validate already wrote a 400
			return
		}

		o := req.Order.ToOrder(cfg.Now())
		if o.CorrelationID == "" {
			o.CorrelationID = c.GetHeader(CorrelationHeader)
		}
		out, err := cfg.Service.HandlePrintRequest(c.Request.Context(), o)
		if err != nil {
			status := statusFor(err)
			cfg.Log.Error().Err(err).Str("order_id", out.OrderID).Int("status", status).Msg("print request failed")
			c.JSON(status, gin.H{"error": errorCode(status), "orderId": out.OrderID})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/health", func(c *gin.Context) {
		st := cfg.Service.Status()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "queue": st.Pending, "active": st.Active})
	})

	r.GET("/test", func(c *gin.Context) {
		o := SampleOrder(cfg.Now())
		out, err := cfg.Service.HandlePrintRequest(c.Request.Context(), o)
		switch {
		case err != nil:
			cfg.Log.Error().Err(err).Str("order_id", o.OrderID).Msg("test print failed")
			c.String(statusFor(err), "ERROR")
		case out.Duplicate:
			c.String(http.StatusOK, "Duplicate")
		case out.Accepted:
			c.String(http.StatusOK, "OK")
		default:
			c.String(http.StatusOK, "ERROR")
		}
	})

	r.GET("/", func(c *gin.Context) {
		st := cfg.Service.Status()
		title := html.EscapeString(cfg.Title)
		page := fmt.Sprintf("<h1>%s</h1><p>OK - queue: %d, printing: %t</p><a href=\"/test\">Test</a>", title, st.Pending, st.Active)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})

	metrics := promhttp.Handler()
	if cfg.Gatherer != nil {
		metrics = promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(metrics))
}

func authorized(want string, candidates ...string) bool {
	if want == "" {
		return true
	}
	for _, got := range candidates {
		if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "missing_order"
	case http.StatusServiceUnavailable:
		return "shutting_down"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "print_failed"
	}
}

// SampleOrder is the delivery order printed by GET /test. Its id is derived
// from now so that repeated tests are not suppressed as duplicates.
func SampleOrder(now time.Time) orders.Order {
	id := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(id) > 5 {
		id = id[len(id)-5:]
	}
	total := int64(2350)
	desc := "Poulet, Cordon bleu"
	return orders.Order{
		OrderID: "T" + id,
		Type:    orders.TypeDelivery,
		Payment: orders.PaymentCash,
		Items: []orders.LineItem{
			{Name: "Tacos XL", Quantity: 2, UnitPriceCents: 900, Description: desc, Modifiers: orders.ParseModifiers(desc)},
			{Name: "Coca-Cola", Quantity: 1, UnitPriceCents: 250},
		},
		Customer: orders.CustomerInfo{
			FirstName:  "Test",
			LastName:   "Client",
			Phone:      "0612345678",
			Address:    "15 Rue de la Paix",
			PostalCode: "62800",
			City:       "Lievin",
			Notes:      "Code 1234",
		},
		TotalCents: &total,
		CreatedAt:  now,
	}
}
