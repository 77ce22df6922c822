package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appwebhook "github.com/Navdeepkaurs/ShopifyIngestion/internal/application/webhook"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/dto"
)

// Webhook request headers
const (
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderDeliveryID = "X-Shopify-Webhook-Id"
)

// WebhookAck is the response body for an accepted webhook delivery
type WebhookAck struct {
	Status   string `json:"status"`
	Revision int    `json:"revision,omitempty"`
}

// WebhookHandler receives storefront webhook deliveries. Responses follow
// the sender's retry contract: 2xx acknowledges the delivery, anything else
// asks the sender to redeliver.
type WebhookHandler struct {
	BaseHandler
	admitter *appwebhook.Admitter
	logger   *zap.Logger
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(admitter *appwebhook.Admitter, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{admitter: admitter, logger: logger}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhooks/shopify", h.Receive)
}

// Receive handles one webhook delivery
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// the body limit middleware wraps the reader
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Request body exceeds maximum allowed size")
		return
	}

	delivery := appwebhook.Delivery{
		ShopDomain: c.GetHeader(HeaderShopDomain),
		Topic:      webhook.Topic(c.GetHeader(HeaderTopic)),
		DeliveryID: c.GetHeader(HeaderDeliveryID),
		Signature:  c.GetHeader(HeaderHmac),
		Body:       body,
	}

	result, err := h.admitter.Admit(c.Request.Context(), delivery)
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrInvalidSignature):
			h.Unauthorized(c, "Webhook signature verification failed")
		case errors.Is(err, webhook.ErrUnknownTenant):
			h.NotFound(c, "No active tenant for this shop domain")
		case errors.Is(err, webhook.ErrUnsupportedTopic):
			// acknowledged so the sender stops redelivering a topic we
			// will never ingest
			h.Success(c, WebhookAck{Status: "ignored"})
		default:
			h.logger.Error("webhook processing failed",
				zap.String("shop_domain", delivery.ShopDomain),
				zap.String("topic", delivery.Topic.String()),
				zap.String("delivery_id", delivery.DeliveryID),
				zap.Error(err),
			)
			h.InternalError(c, "Webhook processing failed")
		}
		return
	}

	if result.Duplicate {
		h.Success(c, WebhookAck{Status: "duplicate"})
		return
	}
	h.Success(c, WebhookAck{
		Status:   strings.ToLower(string(result.Outcome)),
		Revision: result.Revision,
	})
}
