package main

import (
	"time"
)

var _ TickerClocker = (*Clock)(nil)

// Clocker is an interface for getting current real time.
type Clocker interface {
	Now() time.Time
}

// TickerClocker also provides tickers. It satisfies the zapcore.Clock
// interface so log timestamps follow the app timezone.
type TickerClocker interface {
	Clocker
	NewTicker(time.Duration) *time.Ticker
}

// Clock reads the wall time in a fixed location.
type Clock struct {
	tz *time.Location
}

// NewClock returns a UTC clock in production and a Local one otherwise.
func NewClock(isProd bool) *Clock {
	if isProd {
		return &Clock{tz: time.UTC}
	}
	return &Clock{tz: time.Local}
}

func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}

func (ck *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
