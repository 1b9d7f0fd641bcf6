package clock

import "time"

// Clock абстракция времени для детерминированных тестов
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem возвращает часы на time.Now
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed возвращает часы, застывшие в одном моменте (для тестов)
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
