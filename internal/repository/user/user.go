package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	"github.com/shopspring/decimal"
)

type userColumns struct {
	TableName        string
	TelegramID       string
	ChatID           string
	Username         string
	Balance          string
	ReferralID       string
	Role             string
	Language         string
	RegisteredAt     string
	LastActivityAt   string
	LastReminderSent string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с пользователями
func New(db persistence.Persistence, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:        "users",
		TelegramID:       "telegram_id",
		ChatID:           "chat_id",
		Username:         "username",
		Balance:          "balance",
		ReferralID:       "referral_id",
		Role:             "role",
		Language:         "language",
		RegisteredAt:     "registered_at",
		LastActivityAt:   "last_activity_at",
		LastReminderSent: "last_reminder_sent",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (10 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.TelegramID,
		r.columns.ChatID,
		r.columns.Username,
		r.columns.Balance,
		r.columns.ReferralID,
		r.columns.Role,
		r.columns.Language,
		r.columns.RegisteredAt,
		r.columns.LastActivityAt,
		r.columns.LastReminderSent,
	)
}

// Create создаёт нового пользователя; повторный /start того же пользователя - no-op
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (%s) DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.TelegramID,
	)

	err := r.db.Exec(ctx, query,
		user.TelegramID,
		user.ChatID,
		user.Username,
		user.Balance,
		user.ReferralID,
		string(user.Role),
		user.Language,
		user.RegisteredAt,
		user.LastActivityAt,
		user.LastReminderSent,
	)
	if err != nil {
		r.Log.Error("failed to create user",
			"error", err,
			"telegram_id", user.TelegramID,
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.Log.Debug("user created", "telegram_id", user.TelegramID)
	return nil
}

// GetByTelegramID получает пользователя по telegram id
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user domain.User

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.TelegramID,
	)

	err := r.db.Get(ctx, &user, query, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.Log.Error("failed to get user",
			"error", err,
			"telegram_id", telegramID,
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ApplyBalanceDelta атомарно применяет дельту к балансу пользователя.
// Проверка "баланс не уходит в минус" выполняется тем же UPDATE, что и запись:
// два конкурентных списания для одного пользователя не могут дать lost update.
func (r *Repository) ApplyBalanceDelta(ctx context.Context, telegramID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $1 WHERE %s = $2 AND %s + $1 >= 0 RETURNING %s`,
		r.columns.TableName,
		r.columns.Balance,
		r.columns.Balance,
		r.columns.TelegramID,
		r.columns.Balance,
		r.columns.Balance,
	)

	var newBalance decimal.Decimal
	err := r.db.QueryRow(ctx, query, delta, telegramID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// строка не обновилась: либо пользователя нет, либо не хватает средств
			exists, existsErr := r.userExists(ctx, telegramID)
			if existsErr != nil {
				return decimal.Zero, existsErr
			}
			if !exists {
				return decimal.Zero, domain.ErrNotFound
			}
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		r.Log.Error("failed to apply balance delta",
			"error", err,
			"telegram_id", telegramID,
			"delta", delta,
		)
		return decimal.Zero, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	r.Log.Debug("balance delta applied",
		"telegram_id", telegramID,
		"delta", delta,
		"new_balance", newBalance,
	)
	return newBalance, nil
}

func (r *Repository) userExists(ctx context.Context, telegramID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		r.columns.TableName,
		r.columns.TelegramID,
	)

	var exists bool
	if err := r.db.Get(ctx, &exists, query, telegramID); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// GetAllChatIDs возвращает chat id всех пользователей (для рассылки)
func (r *Repository) GetAllChatIDs(ctx context.Context) ([]int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		r.columns.ChatID,
		r.columns.TableName,
		r.columns.RegisteredAt,
	)

	var chatIDs []int64
	if err := r.db.Select(ctx, &chatIDs, query); err != nil {
		r.Log.Error("failed to get all chat ids", "error", err)
		return nil, fmt.Errorf("failed to get all chat ids: %w", err)
	}
	return chatIDs, nil
}

// ListInactiveSince возвращает пользователей без активности с cutoff,
// которым ещё не отправляли напоминание за этот период неактивности
func (r *Repository) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE COALESCE(%s, %s) <= $1
		  AND (%s IS NULL OR %s < COALESCE(%s, %s))`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.LastActivityAt,
		r.columns.RegisteredAt,
		r.columns.LastReminderSent,
		r.columns.LastReminderSent,
		r.columns.LastActivityAt,
		r.columns.RegisteredAt,
	)

	var users []domain.User
	if err := r.db.Select(ctx, &users, query, cutoff); err != nil {
		r.Log.Error("failed to list inactive users", "error", err, "cutoff", cutoff)
		return nil, fmt.Errorf("failed to list inactive users: %w", err)
	}
	return users, nil
}

// SetLastReminderSent отмечает отправку напоминания о неактивности
func (r *Repository) SetLastReminderSent(ctx context.Context, telegramID int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
		r.columns.TableName,
		r.columns.LastReminderSent,
		r.columns.TelegramID,
	)

	if err := r.db.Exec(ctx, query, at, telegramID); err != nil {
		r.Log.Error("failed to set last reminder sent",
			"error", err,
			"telegram_id", telegramID,
		)
		return fmt.Errorf("failed to set last reminder sent: %w", err)
	}
	return nil
}

// TouchActivity обновляет отметку активности и сбрасывает отметку напоминания
func (r *Repository) TouchActivity(ctx context.Context, telegramID int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NULL WHERE %s = $2`,
		r.columns.TableName,
		r.columns.LastActivityAt,
		r.columns.LastReminderSent,
		r.columns.TelegramID,
	)

	if err := r.db.Exec(ctx, query, at, telegramID); err != nil {
		r.Log.Error("failed to touch user activity",
			"error", err,
			"telegram_id", telegramID,
		)
		return fmt.Errorf("failed to touch user activity: %w", err)
	}
	return nil
}
