package sessionRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/cache"
)

const sessionTTL = 30 * time.Minute

// Store хранит PendingSession в кэше с TTL.
// Сессия - только неподтверждённое намерение, durable-хранилище ей не нужно.
type Store struct {
	cache cache.Cache
	Log   *slog.Logger
}

// New создаёт хранилище сессий поверх кэша
func New(c cache.Cache, log *slog.Logger) *Store {
	return &Store{
		cache: c,
		Log:   log,
	}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// Get возвращает сессию пользователя или domain.ErrNotFound
func (s *Store) Get(ctx context.Context, userID int64) (*domain.PendingSession, error) {
	raw, err := s.cache.Get(ctx, sessionKey(userID))
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var session domain.PendingSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// битую сессию выбрасываем, пользователь начнёт выбор заново
		s.Log.Warn("corrupted session dropped", "user_id", userID, "error", err)
		_ = s.cache.Delete(ctx, sessionKey(userID))
		return nil, domain.ErrNotFound
	}

	return &session, nil
}

// Set сохраняет сессию, вытесняя предыдущую
func (s *Store) Set(ctx context.Context, session *domain.PendingSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.cache.Set(ctx, sessionKey(session.UserID), string(raw), sessionTTL); err != nil {
		s.Log.Error("failed to store session", "error", err, "user_id", session.UserID)
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Clear удаляет сессию пользователя
func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.cache.Delete(ctx, sessionKey(userID)); err != nil {
		s.Log.Error("failed to clear session", "error", err, "user_id", userID)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
