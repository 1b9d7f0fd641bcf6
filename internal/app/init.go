package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http"
	gatewayController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/gateway"
	healthcheckController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/healthcheck"
	telegramController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/telegram"
	alerterAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/alerter"
	gatewayAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/gateway"
	kafkaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/kafka"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/redis"
	tgAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/shop-bot/internal/ports/cache"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	kafkaPort "github.com/admin/tg-bots/shop-bot/internal/ports/kafka"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
	operationRepo "github.com/admin/tg-bots/shop-bot/internal/repository/operation"
	promoRepo "github.com/admin/tg-bots/shop-bot/internal/repository/promo"
	purchaseRepo "github.com/admin/tg-bots/shop-bot/internal/repository/purchase"
	sessionRepo "github.com/admin/tg-bots/shop-bot/internal/repository/session"
	stockRepo "github.com/admin/tg-bots/shop-bot/internal/repository/stock"
	userRepo "github.com/admin/tg-bots/shop-bot/internal/repository/user"
	alerterService "github.com/admin/tg-bots/shop-bot/internal/services/alerter"
	botService "github.com/admin/tg-bots/shop-bot/internal/services/bot"
	jobScheduler "github.com/admin/tg-bots/shop-bot/internal/services/jobs"
	"github.com/admin/tg-bots/shop-bot/internal/services/notify"
	shopUsecase "github.com/admin/tg-bots/shop-bot/internal/usecases/shop"
	"github.com/jmoiron/sqlx"
)

type Dependencies struct {
	DB             *sqlx.DB
	HTTPServer     *http.Server
	BotService     *botService.Service
	TelegramClient *tgAdapter.Client
	TelegramPoller *tgAdapter.Poller
	KafkaProducer  *kafkaAdapter.Producer
	Cache          cache.Cache
	JobScheduler   *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres()
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	repos := a.initRepositories(db)

	tgClient := tgAdapter.NewClient(a.Cfg.Telegram.BotToken, a.Log)
	if err := tgClient.GetMe(ctx); err != nil {
		return nil, fmt.Errorf("telegram token check failed: %w", err)
	}
	if err := a.registerBotCommands(ctx, tgClient); err != nil {
		a.Log.Warn("failed to register bot commands", "error", err)
	}

	alerterSvc := a.initAlerter()
	cacheClient := a.initCache()
	sessions := sessionRepo.New(cacheClient, a.Log)
	dispatcher := notify.New(tgClient, a.Cfg.Shop.BroadcastDelay(), a.Log)

	kafkaProducer := a.initKafka()

	gateways, err := a.initGateways()
	if err != nil {
		return nil, fmt.Errorf("failed to init payment gateways: %w", err)
	}

	shopService, err := a.initShopUsecase(repos, sessions, gateways, tgClient, dispatcher, alerterSvc, kafkaProducer)
	if err != nil {
		return nil, fmt.Errorf("failed to init shop usecase: %w", err)
	}

	botSvc := botService.New(shopService, tgClient, a.Log)

	httpServer := a.initHTTP(db, botSvc, shopService)
	poller, err := a.initTelegramMode(ctx, tgClient, botSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram mode: %w", err)
	}

	scheduler := a.initJobScheduler(alerterSvc, shopService)

	return &Dependencies{
		DB:             db,
		HTTPServer:     httpServer,
		BotService:     botSvc,
		TelegramClient: tgClient,
		TelegramPoller: poller,
		KafkaProducer:  kafkaProducer,
		Cache:          cacheClient,
		JobScheduler:   scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	User     repository.IUserRepo
	Stock    repository.IStockRepo
	Promo    repository.IPromoRepo
	Purchase repository.IPurchaseRepo
	Registry repository.IOperationRegistry
	History  repository.IOperationHistoryRepo
}

// initRepositories инициализирует репозитории для работы с БД
func (a *App) initRepositories(db *sqlx.DB) *repositories {
	persistenceLayer := pg.NewDB(db)
	return &repositories{
		User:     userRepo.New(persistenceLayer, a.Log),
		Stock:    stockRepo.New(persistenceLayer, a.Log),
		Promo:    promoRepo.New(persistenceLayer, a.Log),
		Purchase: purchaseRepo.New(persistenceLayer, a.Log),
		Registry: operationRepo.NewRegistry(persistenceLayer, a.Log),
		History:  operationRepo.NewHistory(persistenceLayer, a.Log),
	}
}

// initAlerter инициализирует алертер (опциональный)
func (a *App) initAlerter() service.IAlerterService {
	if a.Cfg.Alerter == nil {
		return nil
	}

	alerterClient := alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
	return alerterService.New(alerterClient)
}

// initCache инициализирует Redis кэш с fallback на in-memory
func (a *App) initCache() cache.Cache {
	if a.Cfg.Redis != nil {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, falling back to in-memory", "error", err)
		} else {
			a.Log.Info("redis cache connected successfully")
			return redisAdapter.NewClient(redisClient)
		}
	}

	return inmemory.NewCache()
}

// initKafka инициализирует producer событий (опциональный)
func (a *App) initKafka() *kafkaAdapter.Producer {
	if a.Cfg.Kafka == nil || a.Cfg.Kafka.Topic == "" {
		a.Log.Warn("kafka is not configured, shop events will not be published")
		return nil
	}

	producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
	if err != nil {
		a.Log.Warn("failed to create kafka producer, continuing without events", "error", err)
		return nil
	}
	return producer
}

// initGateways инициализирует платёжные шлюзы по видам операций
func (a *App) initGateways() (map[domain.OperationKind]gatewayPort.IPaymentGateway, error) {
	gateways := make(map[domain.OperationKind]gatewayPort.IPaymentGateway)

	if a.Cfg.FiatGateway != nil && a.Cfg.FiatGateway.BaseURL != "" {
		fiat := gatewayAdapter.NewFiatGateway(a.Cfg.FiatGateway, a.Log)
		gateways[fiat.Kind()] = fiat
	}
	if a.Cfg.CryptoGateway != nil && a.Cfg.CryptoGateway.BaseURL != "" {
		crypto := gatewayAdapter.NewCryptoGateway(a.Cfg.CryptoGateway, a.Log)
		gateways[crypto.Kind()] = crypto
	}

	if len(gateways) == 0 {
		return nil, fmt.Errorf("no payment gateways configured")
	}
	return gateways, nil
}

// initShopUsecase инициализирует бизнес-логику магазина
func (a *App) initShopUsecase(
	repos *repositories,
	sessions *sessionRepo.Store,
	gateways map[domain.OperationKind]gatewayPort.IPaymentGateway,
	tgClient *tgAdapter.Client,
	dispatcher *notify.Dispatcher,
	alerterSvc service.IAlerterService,
	kafkaProducer *kafkaAdapter.Producer,
) (*shopUsecase.Service, error) {
	topUpMin, topUpMax, err := a.Cfg.Shop.TopUpBounds()
	if err != nil {
		return nil, err
	}

	shopCfg := shopUsecase.Config{
		PaymentWindow:       a.Cfg.Shop.PaymentWindow(),
		ReferralPct:         a.Cfg.Shop.ReferralPercent,
		Currency:            a.Cfg.Shop.Currency,
		TopUpMin:            topUpMin,
		TopUpMax:            topUpMax,
		InactivityThreshold: a.Cfg.Shop.InactivityThreshold(),
	}

	// типизированный nil указатель не должен попасть в интерфейс
	var events kafkaPort.IEventProducer
	if kafkaProducer != nil {
		events = kafkaProducer
	}

	return shopUsecase.New(
		repos.User,
		repos.Stock,
		repos.Promo,
		repos.Purchase,
		repos.Registry,
		repos.History,
		sessions,
		gateways,
		tgClient,
		dispatcher,
		alerterSvc,
		events,
		clock.NewSystem(),
		shopCfg,
		a.Log,
	), nil
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *sqlx.DB,
	botSvc *botService.Service,
	shopService *shopUsecase.Service,
) *http.Server {
	controllers := []server.Controller{
		healthcheckController.New(db, a.Log),
		gatewayController.New(shopService, a.Cfg.Shop.GatewayWebhookSecret, a.Log),
	}

	if a.Cfg.Telegram.IsWebhookEnabled() {
		controllers = append(controllers,
			telegramController.New(botSvc, a.Cfg.Telegram.WebhookSecret, a.Log))
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initTelegramMode инициализирует режим работы Telegram (webhook или polling)
func (a *App) initTelegramMode(
	ctx context.Context,
	tgClient *tgAdapter.Client,
	botSvc *botService.Service,
) (*tgAdapter.Poller, error) {
	a.Log.Info("telegram configuration",
		"use_webhook", a.Cfg.Telegram.IsWebhookEnabled(),
		"webhook_url", a.Cfg.Telegram.WebhookURL,
	)

	if err := a.Cfg.Telegram.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telegram config: %w", err)
	}

	if a.Cfg.Telegram.IsWebhookEnabled() {
		webhookURL := fmt.Sprintf("%s/webhook/telegram", a.Cfg.Telegram.WebhookURL)
		if err := tgClient.SetWebhook(ctx, webhookURL, a.Cfg.Telegram.WebhookSecret); err != nil {
			return nil, fmt.Errorf("failed to set webhook: %w", err)
		}

		return nil, nil // webhook режим, poller не нужен
	}

	a.Log.Warn("polling mode enabled - this should only be used for local development")

	handler := func(ctx context.Context, update *domain.Update) error {
		return botSvc.HandleUpdate(ctx, update)
	}
	return tgAdapter.NewPoller(tgClient, a.Cfg.Telegram, handler, a.Log), nil
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(
	alerterSvc service.IAlerterService,
	shopService *shopUsecase.Service,
) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc)

	reminder := jobScheduler.NewInactivityReminder(shopService, a.Cfg.Shop.ReminderInterval(), a.Log)
	scheduler.Register(reminder)
	a.Log.Info("inactivity reminder job registered")

	return scheduler
}

// registerBotCommands регистрирует команды бота в Telegram
func (a *App) registerBotCommands(ctx context.Context, client *tgAdapter.Client) error {
	commands := []tgAdapter.BotCommand{
		{Command: "start", Description: "Начать работу с ботом"},
		{Command: "buy", Description: "Купить товар"},
		{Command: "topup", Description: "Пополнить баланс"},
		{Command: "profile", Description: "Мой профиль"},
		{Command: "history", Description: "Мои покупки"},
	}

	return client.SetMyCommands(ctx, commands)
}
