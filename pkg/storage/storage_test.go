package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func addresses(tokens []core.TrackedToken) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, token.Address)
	}
	return out
}

// runStorageSuite exercises the core.TokenStorage contract against one backend
func runStorageSuite(t *testing.T, open func(t *testing.T, c *clock) core.TokenStorage) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		s := open(t, newClock())

		tokens, err := s.ListTokens(ctx, 42)
		require.NoError(t, err)
		require.Empty(t, tokens)

		count, err := s.CountTokens(ctx, 42)
		require.NoError(t, err)
		require.Zero(t, count)

		require.NoError(t, s.UpdateCheck(ctx, 42, "0xABC", decimal.NewFromInt(1)))
		require.NoError(t, s.RemoveToken(ctx, 42, "0xABC"))
	})

	t.Run("add and list", func(t *testing.T) {
		c := newClock()
		s := open(t, c)

		require.NoError(t, s.AddToken(ctx, 1, "0xAAA"))
		c.Advance(time.Second)
		require.NoError(t, s.AddToken(ctx, 1, "0xBBB"))
		require.NoError(t, s.AddToken(ctx, 2, "0xCCC"))

		tokens, err := s.ListTokens(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []string{"0xAAA", "0xBBB"}, addresses(tokens))
		require.True(t, tokens[0].LastCheck.Equal(newClock().now), "got %s", tokens[0].LastCheck)
		require.False(t, tokens[0].LastPrice.Valid)
		require.Equal(t, int64(1), tokens[0].TelegramID)

		count, err := s.CountTokens(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		count, err = s.CountTokens(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("list all tracked", func(t *testing.T) {
		s := open(t, newClock())

		require.NoError(t, s.AddToken(ctx, 7, "0x1"))
		require.NoError(t, s.AddToken(ctx, 3, "0x2"))
		require.NoError(t, s.AddToken(ctx, 7, "0x3"))

		all, err := s.ListAllTracked(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, []string{"0x1", "0x3"}, addresses(all[7]))
		require.Equal(t, []string{"0x2"}, addresses(all[3]))
		require.Equal(t, []int64{3, 7}, core.SortedUserIDs(all))
	})

	t.Run("update check", func(t *testing.T) {
		c := newClock()
		s := open(t, c)

		require.NoError(t, s.AddToken(ctx, 1, "0xAAA"))
		c.Advance(20 * time.Minute)
		require.NoError(t, s.UpdateCheck(ctx, 1, "0xAAA", decimal.RequireFromString("1.2345")))

		c.Advance(time.Minute)
		require.NoError(t, s.UpdateCheck(ctx, 1, "0xAAA", decimal.RequireFromString("1.2345")))

		tokens, err := s.ListTokens(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		require.True(t, tokens[0].LastCheck.Equal(c.now), "got %s want %s", tokens[0].LastCheck, c.now)
		require.True(t, tokens[0].LastPrice.Valid)
		require.True(t, tokens[0].LastPrice.Decimal.Equal(decimal.RequireFromString("1.2345")))

		// unknown address is a no-op
		require.NoError(t, s.UpdateCheck(ctx, 1, "0xZZZ", decimal.NewFromInt(3)))
	})

	t.Run("remove", func(t *testing.T) {
		s := open(t, newClock())

		require.NoError(t, s.AddToken(ctx, 1, "0xAAA"))
		require.NoError(t, s.AddToken(ctx, 1, "0xBBB"))
		require.NoError(t, s.RemoveToken(ctx, 1, "0xAAA"))
		require.NoError(t, s.RemoveToken(ctx, 1, "0xMISSING"))

		tokens, err := s.ListTokens(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []string{"0xBBB"}, addresses(tokens))
	})

	t.Run("duplicates are removed one at a time", func(t *testing.T) {
		c := newClock()
		s := open(t, c)

		require.NoError(t, s.AddToken(ctx, 1, "0xDUP"))
		c.Advance(time.Minute)
		require.NoError(t, s.AddToken(ctx, 1, "0xDUP"))

		count, err := s.CountTokens(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		require.NoError(t, s.RemoveToken(ctx, 1, "0xDUP"))

		tokens, err := s.ListTokens(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		require.True(t, tokens[0].LastCheck.Equal(c.now), "the oldest row goes first")
	})

	t.Run("many users", func(t *testing.T) {
		s := open(t, newClock())

		for user := int64(1); user <= 5; user++ {
			for i := 0; i < int(user); i++ {
				require.NoError(t, s.AddToken(ctx, user, fmt.Sprintf("0x%d-%d", user, i)))
			}
		}

		all, err := s.ListAllTracked(ctx)
		require.NoError(t, err)
		for user := int64(1); user <= 5; user++ {
			require.Len(t, all[user], int(user))
		}
	})
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), core.StorageSettings{URL: "redis://localhost"})
	require.ErrorIs(t, err, core.ErrUnknownDriver)
}

func TestOpen_BuntMemory(t *testing.T) {
	s, err := Open(context.Background(), core.StorageSettings{URL: "buntdb://:memory:"})
	require.NoError(t, err)
	require.IsType(t, &BuntStorage{}, s)
	require.NoError(t, s.Close())
}

func TestNormalizePostgres(t *testing.T) {
	require.Equal(t, "postgresql://u:p@host/db", normalizePostgres("postgres://u:p@host/db"))
	require.Equal(t, "postgresql://u:p@host/db", normalizePostgres("postgresql://u:p@host/db"))
	require.True(t, isPostgres("postgres://x"))
	require.False(t, isPostgres("bot.db"))
}
