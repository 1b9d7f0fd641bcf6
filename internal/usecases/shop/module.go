package shop

import (
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/clock"
	cachePort "github.com/admin/tg-bots/shop-bot/internal/ports/cache"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	kafkaPort "github.com/admin/tg-bots/shop-bot/internal/ports/kafka"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
	telegramPort "github.com/admin/tg-bots/shop-bot/internal/ports/telegram"
	"github.com/shopspring/decimal"
)

// Config параметры бизнес-логики магазина
type Config struct {
	PaymentWindow       time.Duration // окно ожидания оплаты инвойса
	ReferralPct         int64         // процент реферальной комиссии, 0 - выключено
	Currency            string        // валюта баланса магазина
	TopUpMin            decimal.Decimal
	TopUpMax            decimal.Decimal
	InactivityThreshold time.Duration // порог неактивности для напоминаний
}

// Service бизнес-логика магазина: пополнения, покупки, промокоды,
// сверка инвойсов с платёжными шлюзами
type Service struct {
	UserRepo     repository.IUserRepo
	StockRepo    repository.IStockRepo
	PromoRepo    repository.IPromoRepo
	PurchaseRepo repository.IPurchaseRepo
	Registry     repository.IOperationRegistry
	History      repository.IOperationHistoryRepo
	Sessions     cachePort.ISessionStore
	Gateways     map[domain.OperationKind]gatewayPort.IPaymentGateway
	Telegram     telegramPort.IClient
	Dispatcher   service.INotificationDispatcher
	Alerter      service.IAlerterService
	Events       kafkaPort.IEventProducer
	Clock        clock.Clock
	Config       Config
	Log          *slog.Logger
}

// New создаёт новый сервис для бизнес-логики магазина
func New(
	userRepo repository.IUserRepo,
	stockRepo repository.IStockRepo,
	promoRepo repository.IPromoRepo,
	purchaseRepo repository.IPurchaseRepo,
	registry repository.IOperationRegistry,
	history repository.IOperationHistoryRepo,
	sessions cachePort.ISessionStore,
	gateways map[domain.OperationKind]gatewayPort.IPaymentGateway,
	telegramClient telegramPort.IClient,
	dispatcher service.INotificationDispatcher,
	alerter service.IAlerterService,
	events kafkaPort.IEventProducer,
	clk clock.Clock,
	config Config,
	log *slog.Logger,
) *Service {
	return &Service{
		UserRepo:     userRepo,
		StockRepo:    stockRepo,
		PromoRepo:    promoRepo,
		PurchaseRepo: purchaseRepo,
		Registry:     registry,
		History:      history,
		Sessions:     sessions,
		Gateways:     gateways,
		Telegram:     telegramClient,
		Dispatcher:   dispatcher,
		Alerter:      alerter,
		Events:       events,
		Clock:        clk,
		Config:       config,
		Log:          log,
	}
}

func (s *Service) gateway(kind domain.OperationKind) (gatewayPort.IPaymentGateway, bool) {
	gw, ok := s.Gateways[kind]
	return gw, ok
}
