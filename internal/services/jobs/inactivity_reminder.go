package jobs

import (
	"context"
	"log/slog"
	"time"

	shopUsecase "github.com/admin/tg-bots/shop-bot/internal/usecases/shop"
)

const inactivityReminderName = "inactivity-reminder"

// InactivityReminder джоба напоминаний неактивным пользователям, проход раз в час
type InactivityReminder struct {
	shopService *shopUsecase.Service
	interval    time.Duration
	log         *slog.Logger
}

func NewInactivityReminder(
	shopService *shopUsecase.Service,
	interval time.Duration,
	log *slog.Logger,
) *InactivityReminder {
	if interval <= 0 {
		interval = time.Hour
	}

	return &InactivityReminder{
		shopService: shopService,
		interval:    interval,
		log:         log,
	}
}

func (j *InactivityReminder) Name() string {
	return inactivityReminderName
}

// NextRun следующий проход через фиксированный интервал
func (j *InactivityReminder) NextRun(now time.Time) time.Time {
	return now.Add(j.interval)
}

// Run рассылает напоминания всем, кто пересёк порог неактивности
func (j *InactivityReminder) Run(ctx context.Context) error {
	return j.shopService.RemindInactiveUsers(ctx)
}
