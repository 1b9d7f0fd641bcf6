package shop

import (
	"context"
	"io"
	"sync"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/clock"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService собирает сервис на in-memory фейках.
// Возвращённые фейки позволяют настраивать сценарий и проверять эффекты.
func newTestService(now time.Time) (*Service, *testDeps) {
	deps := &testDeps{
		users:      newFakeUserRepo(),
		stock:      newFakeStockRepo(),
		promos:     newFakePromoRepo(),
		purchases:  &fakePurchaseRepo{},
		registry:   newFakeRegistry(),
		history:    &fakeHistory{},
		sessions:   newFakeSessionStore(),
		gateway:    newFakeGateway(domain.OperationKindFiat),
		telegram:   &fakeTelegram{},
		dispatcher: &fakeDispatcher{},
		alerter:    &fakeAlerter{},
	}

	svc := New(
		deps.users,
		deps.stock,
		deps.promos,
		deps.purchases,
		deps.registry,
		deps.history,
		deps.sessions,
		map[domain.OperationKind]gatewayPort.IPaymentGateway{
			domain.OperationKindFiat: deps.gateway,
		},
		deps.telegram,
		deps.dispatcher,
		deps.alerter,
		nil,
		clock.NewFixed(now),
		Config{
			PaymentWindow:       time.Minute,
			ReferralPct:         5,
			Currency:            "RUB",
			TopUpMin:            decimal.NewFromInt(10),
			TopUpMax:            decimal.NewFromInt(10000),
			InactivityThreshold: 72 * time.Hour,
		},
		testLogger(),
	)
	return svc, deps
}

type testDeps struct {
	users      *fakeUserRepo
	stock      *fakeStockRepo
	promos     *fakePromoRepo
	purchases  *fakePurchaseRepo
	registry   *fakeRegistry
	history    *fakeHistory
	sessions   *fakeSessionStore
	gateway    *fakeGateway
	telegram   *fakeTelegram
	dispatcher *fakeDispatcher
	alerter    *fakeAlerter
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[int64]*domain.User
	deltaErr error // если задана, ApplyBalanceDelta вернёт её для всех
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	m := make(map[int64]*domain.User)
	for _, u := range users {
		m[u.TelegramID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) add(u *domain.User) {
	f.mu.Lock()
	f.users[u.TelegramID] = u
	f.mu.Unlock()
}

func (f *fakeUserRepo) balance(telegramID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[telegramID].Balance
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.TelegramID] = user
	return nil
}

func (f *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (f *fakeUserRepo) ApplyBalanceDelta(_ context.Context, telegramID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deltaErr != nil {
		return decimal.Zero, f.deltaErr
	}
	user, ok := f.users[telegramID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	next := user.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	user.Balance = next
	return next, nil
}

func (f *fakeUserRepo) GetAllChatIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for _, u := range f.users {
		ids = append(ids, u.ChatID)
	}
	return ids, nil
}

func (f *fakeUserRepo) ListInactiveSince(_ context.Context, cutoff time.Time) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		if u.LastActivityAt == nil || u.LastActivityAt.After(cutoff) {
			continue
		}
		if u.LastReminderSent != nil && u.LastReminderSent.After(*u.LastActivityAt) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) SetLastReminderSent(_ context.Context, telegramID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[telegramID]
	if !ok {
		return domain.ErrNotFound
	}
	user.LastReminderSent = &at
	return nil
}

func (f *fakeUserRepo) TouchActivity(_ context.Context, telegramID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[telegramID]
	if !ok {
		return domain.ErrNotFound
	}
	user.LastActivityAt = &at
	return nil
}

type fakeStockRepo struct {
	mu       sync.Mutex
	items    map[string]*domain.Item
	units    map[int64]*stockUnitState
	nextID   int64
	released []int64
}

type stockUnitState struct {
	unit    domain.StockUnit
	claimed bool
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		items: make(map[string]*domain.Item),
		units: make(map[int64]*stockUnitState),
	}
}

func (f *fakeStockRepo) addItem(item *domain.Item, units ...domain.StockUnit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.Name] = item
	for _, u := range units {
		f.nextID++
		u.ID = f.nextID
		u.ItemName = item.Name
		f.units[u.ID] = &stockUnitState{unit: u}
	}
}

func (f *fakeStockRepo) GetItem(_ context.Context, name string) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeStockRepo) ClaimUnit(_ context.Context, itemName string) (*domain.StockUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, state := range f.units {
		if state.unit.ItemName != itemName {
			continue
		}
		if state.unit.IsInfinity {
			unit := state.unit
			return &unit, nil
		}
		if state.claimed {
			continue
		}
		state.claimed = true
		unit := state.unit
		return &unit, nil
	}
	return nil, domain.ErrStockExhausted
}

func (f *fakeStockRepo) ReleaseUnit(_ context.Context, unitID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.units[unitID]
	if !ok {
		return domain.ErrNotFound
	}
	state.claimed = false
	f.released = append(f.released, unitID)
	return nil
}

func (f *fakeStockRepo) AvailableCount(_ context.Context, itemName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, state := range f.units {
		if state.unit.ItemName != itemName {
			continue
		}
		if state.unit.IsInfinity {
			return 1, nil
		}
		if !state.claimed {
			count++
		}
	}
	return count, nil
}

type fakePromoRepo struct {
	mu     sync.Mutex
	promos map[string]*domain.PromoCode
}

func newFakePromoRepo(promos ...*domain.PromoCode) *fakePromoRepo {
	m := make(map[string]*domain.PromoCode)
	for _, p := range promos {
		m[p.Code] = p
	}
	return &fakePromoRepo{promos: m}
}

func (f *fakePromoRepo) add(p *domain.PromoCode) {
	f.mu.Lock()
	f.promos[p.Code] = p
	f.mu.Unlock()
}

func (f *fakePromoRepo) GetByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promo, ok := f.promos[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return promo, nil
}

type fakePurchaseRepo struct {
	mu        sync.Mutex
	purchases []domain.Purchase
	createErr error
}

func (f *fakePurchaseRepo) Create(_ context.Context, purchase *domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.purchases = append(f.purchases, *purchase)
	return nil
}

func (f *fakePurchaseRepo) CountByBuyer(_ context.Context, buyerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.purchases {
		if p.BuyerID == buyerID {
			count++
		}
	}
	return count, nil
}

func (f *fakePurchaseRepo) ListByBuyer(_ context.Context, buyerID int64) ([]domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Purchase
	for _, p := range f.purchases {
		if p.BuyerID == buyerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeRegistry повторяет контракт durable-реестра: Claim атомарно
// изымает операцию, проигравшие получают domain.ErrNotFound.
type fakeRegistry struct {
	mu      sync.Mutex
	pending map[string]*domain.Operation
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{pending: make(map[string]*domain.Operation)}
}

func (f *fakeRegistry) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *fakeRegistry) Put(_ context.Context, op *domain.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[op.ID]; ok {
		return domain.ErrDuplicateOperation
	}
	copy := *op
	f.pending[op.ID] = &copy
	return nil
}

func (f *fakeRegistry) Peek(_ context.Context, operationID string) (*domain.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.pending[operationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *op
	return &copy, nil
}

func (f *fakeRegistry) Claim(_ context.Context, operationID string) (*domain.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.pending[operationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.pending, operationID)
	return op, nil
}

func (f *fakeRegistry) Unclaim(_ context.Context, op *domain.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *op
	f.pending[op.ID] = &copy
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []historyRecord
}

type historyRecord struct {
	op     domain.Operation
	status domain.OperationStatus
}

func (f *fakeHistory) statuses(operationID string) []domain.OperationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OperationStatus
	for _, r := range f.records {
		if r.op.ID == operationID {
			out = append(out, r.status)
		}
	}
	return out
}

func (f *fakeHistory) RecordResult(_ context.Context, op *domain.Operation, status domain.OperationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, historyRecord{op: *op, status: status})
	return nil
}

func (f *fakeHistory) TotalToppedUp(_ context.Context, userID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, r := range f.records {
		if r.op.UserID == userID && r.status == domain.OperationStatusFinished {
			total = total.Add(r.op.Amount)
		}
	}
	return total, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*domain.PendingSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*domain.PendingSession)}
}

func (f *fakeSessionStore) Get(_ context.Context, userID int64) (*domain.PendingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *session
	return &copy, nil
}

func (f *fakeSessionStore) Set(_ context.Context, session *domain.PendingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *session
	f.sessions[session.UserID] = &copy
	return nil
}

func (f *fakeSessionStore) Clear(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	kind     domain.OperationKind
	nextID   int
	statuses map[string]gatewayPort.InvoiceStatus
	pollErr  error
	polls    int
}

func newFakeGateway(kind domain.OperationKind) *fakeGateway {
	return &fakeGateway{
		kind:     kind,
		statuses: make(map[string]gatewayPort.InvoiceStatus),
	}
}

func (f *fakeGateway) setStatus(invoiceID string, status gatewayPort.InvoiceStatus) {
	f.mu.Lock()
	f.statuses[invoiceID] = status
	f.mu.Unlock()
}

func (f *fakeGateway) Kind() domain.OperationKind {
	return f.kind
}

func (f *fakeGateway) CreateInvoice(_ context.Context, amount decimal.Decimal, currency string) (*gatewayPort.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "inv-" + currency + "-" + decimal.NewFromInt(int64(f.nextID)).String()
	f.statuses[id] = gatewayPort.InvoiceStatusPending
	return &gatewayPort.Invoice{
		ID:            id,
		PayTarget:     "https://pay.example/" + id,
		DisplayAmount: amount,
		Currency:      currency,
	}, nil
}

func (f *fakeGateway) PollStatus(_ context.Context, invoiceID string) (gatewayPort.InvoiceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return "", f.pollErr
	}
	status, ok := f.statuses[invoiceID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return status, nil
}

type fakeTelegram struct {
	mu     sync.Mutex
	nextID int64
	sent   []string
}

func (f *fakeTelegram) SendMessage(_ context.Context, _ int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func (f *fakeTelegram) SendMessageWithKeyboard(_ context.Context, _ int64, text string, _ map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func (f *fakeTelegram) EditMessageText(_ context.Context, _ int64, _ int64, _ string) error {
	return nil
}

func (f *fakeTelegram) AnswerCallbackQuery(_ context.Context, _ string, _ string, _ bool) error {
	return nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	notified  map[int64]int // chatID -> число доставленных Notify
	edits     []string
	notifyErr map[int64]error // ошибка доставки для конкретного chatID
}

func (f *fakeDispatcher) notifyCount(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notified[chatID]
}

func (f *fakeDispatcher) Notify(_ context.Context, chatID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.notifyErr[chatID]; ok {
		return err
	}
	if f.notified == nil {
		f.notified = make(map[int64]int)
	}
	f.notified[chatID]++
	return nil
}

func (f *fakeDispatcher) NotifyWithKeyboard(ctx context.Context, chatID int64, text string, _ map[string]interface{}) error {
	return f.Notify(ctx, chatID, text)
}

func (f *fakeDispatcher) Edit(_ context.Context, _ domain.NotifyRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeDispatcher) Broadcast(ctx context.Context, chatIDs []int64, text string) (int64, error) {
	var delivered int64
	for _, chatID := range chatIDs {
		if err := f.Notify(ctx, chatID, text); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (f *fakeAlerter) SendAlert(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, message)
	return nil
}
