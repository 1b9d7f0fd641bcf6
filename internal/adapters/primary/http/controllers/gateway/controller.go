package gateway

import (
	"log/slog"
	"net/http"

	shopUsecase "github.com/admin/tg-bots/shop-bot/internal/usecases/shop"
	"github.com/gin-gonic/gin"
)

// Controller принимает уведомления платёжных шлюзов об оплате.
// Из тела берётся только id инвойса: фактический статус
// перепроверяется опросом шлюза, так что поддельное уведомление
// ничего не финализирует.
type Controller struct {
	Shop        *shopUsecase.Service
	SecretToken string
	Log         *slog.Logger
}

func New(shop *shopUsecase.Service, secretToken string, log *slog.Logger) *Controller {
	return &Controller{
		Shop:        shop,
		SecretToken: secretToken,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook/gateway", c.handleNotification)
}

type notificationRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
}

func (c *Controller) handleNotification(ctx *gin.Context) {
	if c.SecretToken != "" && ctx.GetHeader("X-Gateway-Token") != c.SecretToken {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
		return
	}

	var req notificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind gateway notification", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Log.Debug("received gateway notification", "invoice_id", req.InvoiceID)

	if err := c.Shop.HandleGatewayNotification(ctx.Request.Context(), req.InvoiceID); err != nil {
		c.Log.Error("failed to handle gateway notification",
			"error", err,
			"invoice_id", req.InvoiceID,
		)
		// шлюз повторит уведомление позже
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
