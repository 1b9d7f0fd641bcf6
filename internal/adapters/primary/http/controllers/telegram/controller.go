package telegram

import (
	"log/slog"
	"net/http"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	botService "github.com/admin/tg-bots/shop-bot/internal/services/bot"
	"github.com/gin-gonic/gin"
)

// Controller принимает webhook обновления от Telegram
type Controller struct {
	BotService  *botService.Service
	SecretToken string
	Log         *slog.Logger
}

func New(bot *botService.Service, secretToken string, log *slog.Logger) *Controller {
	return &Controller{
		BotService:  bot,
		SecretToken: secretToken,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook/telegram", c.handleWebhook)
}

func (c *Controller) handleWebhook(ctx *gin.Context) {
	secretToken := ctx.GetHeader("X-Telegram-Bot-Api-Secret-Token")
	if secretToken == "" || secretToken != c.SecretToken {
		c.Log.Warn("webhook with bad secret token")
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "secret token required"})
		return
	}

	var update domain.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		c.Log.Error("failed to bind webhook request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Log.Debug("received webhook update", "update_id", update.UpdateID)

	if err := c.BotService.HandleUpdate(ctx.Request.Context(), &update); err != nil {
		c.Log.Error("failed to handle update",
			"error", err,
			"update_id", update.UpdateID,
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process update"})
		return
	}

	// Telegram ожидает 200 OK в ответ
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
