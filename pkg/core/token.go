package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MaxTokensPerUser is the number of tokens a single user may track
const MaxTokensPerUser = 10

// User represents a chat user that owns tracked tokens
type User struct {
	ID         int64 `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex;not null"`
}

// Token represents a single (user, address) tracking subscription as persisted
type Token struct {
	ID        int64               `gorm:"primaryKey" json:"id"`
	UserID    int64               `gorm:"index;not null" json:"user_id"`
	Address   string              `gorm:"not null" json:"address"`
	LastCheck time.Time           `json:"last_check"`
	LastPrice decimal.NullDecimal `gorm:"type:numeric" json:"last_price"`
}

// TrackedToken is the user-facing view of a Token, keyed by the platform identity
type TrackedToken struct {
	TelegramID int64
	Address    string
	LastCheck  time.Time
	LastPrice  decimal.NullDecimal
}

// DueAt reports whether the token should be checked again at now
func (t TrackedToken) DueAt(now time.Time, every time.Duration) bool {
	return now.Sub(t.LastCheck) >= every
}

// SortedUserIDs returns the keys of a ListAllTracked result in ascending order
func SortedUserIDs(tracked map[int64][]TrackedToken) []int64 {
	ids := make([]int64, 0, len(tracked))
	for id := range tracked {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
