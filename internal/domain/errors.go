package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateOperation = errors.New("operation id already registered")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrStockExhausted     = errors.New("stock exhausted")
	ErrPromoInvalid       = errors.New("promo code invalid")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrAmountOutOfRange   = errors.New("top-up amount out of bounds")
	ErrRecipientBlocked   = errors.New("recipient blocked or unreachable")
)

// ThrottledError сигнал rate limit от Telegram API с рекомендуемой задержкой
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled, retry after %s", e.RetryAfter)
}

// AsThrottled возвращает ThrottledError, если err им является
func AsThrottled(err error) (*ThrottledError, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled, true
	}
	return nil, false
}

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}
