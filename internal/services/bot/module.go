package bot

import (
	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/ports/telegram"
	shopUsecase "github.com/admin/tg-bots/shop-bot/internal/usecases/shop"
)

// Service роутер обновлений Telegram: разбирает команды и callback-кнопки
// и делегирует бизнес-логику в usecase магазина
type Service struct {
	Shop     *shopUsecase.Service
	Telegram telegram.IClient
	Log      *slog.Logger
}

func New(
	shopService *shopUsecase.Service,
	telegramClient telegram.IClient,
	log *slog.Logger,
) *Service {
	return &Service{
		Shop:     shopService,
		Telegram: telegramClient,
		Log:      log,
	}
}
