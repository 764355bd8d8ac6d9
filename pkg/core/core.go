package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type TokenStorage interface {
	AddToken(ctx context.Context, telegramID int64, address string) error
	ListTokens(ctx context.Context, telegramID int64) ([]TrackedToken, error)
	ListAllTracked(ctx context.Context) (map[int64][]TrackedToken, error)
	UpdateCheck(ctx context.Context, telegramID int64, address string, price decimal.Decimal) error
	RemoveToken(ctx context.Context, telegramID int64, address string) error
	CountTokens(ctx context.Context, telegramID int64) (int, error)
	Close() error
}

type PriceFeed interface {
	FetchPrice(ctx context.Context, address string) (PriceSnapshot, error)
}

type Notifier interface {
	Send(ctx context.Context, telegramID int64, text string) error
}

type NotifierWithStart interface {
	Notifier
	Start()
	Stop()
}

// CommandContext is the slice of a chat update a command handler is allowed to see
type CommandContext interface {
	Args() []string
	UserID() int64
	Reply(text string) error
}
