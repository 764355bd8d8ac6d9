package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/tidwall/buntdb"
)

const (
	userPrefix   = "user:"
	tokenPrefix  = "token:"
	userSeqKey   = "seq:user"
	tokenSeqKey  = "seq:token"
	tokenByUser  = "token_user"
	memoryTarget = ":memory:"
)

// BuntStorage implements the core.TokenStorage interface using BuntDB
type BuntStorage struct {
	base
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory(opts ...Option) (*BuntStorage, error) {
	return NewBuntStorage(memoryTarget, opts...)
}

// FromFile creates a file-based storage
func FromFile(file string, opts ...Option) (*BuntStorage, error) {
	return NewBuntStorage(file, opts...)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string, opts ...Option) (*BuntStorage, error) {
	if IsMemory(sourceFile) {
		sourceFile = memoryTarget
	}

	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(tokenByUser, tokenPrefix+"*", buntdb.IndexJSON("user_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{
		base: newBase(opts),
		db:   db,
	}, nil
}

func userKey(telegramID int64) string {
	return userPrefix + strconv.FormatInt(telegramID, 10)
}

// tokenKey pads the id so key order matches insertion order
func tokenKey(id int64) string {
	return fmt.Sprintf("%s%020d", tokenPrefix, id)
}

// nextID increments a sequence stored alongside the data so ids survive restarts
func nextID(tx *buntdb.Tx, key string) (int64, error) {
	var last int64

	value, err := tx.Get(key)
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		last, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupted sequence %s: %w", key, err)
		}
	}

	last++
	if _, _, err := tx.Set(key, strconv.FormatInt(last, 10), nil); err != nil {
		return 0, err
	}
	return last, nil
}

func getUser(tx *buntdb.Tx, telegramID int64) (user core.User, ok bool, err error) {
	value, err := tx.Get(userKey(telegramID))
	if errors.Is(err, buntdb.ErrNotFound) {
		return user, false, nil
	}
	if err != nil {
		return user, false, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}

	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return user, false, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return user, true, nil
}

// userTokens walks the tokens of one user in insertion order until fn returns false
func userTokens(tx *buntdb.Tx, userID int64, fn func(key string, token core.Token) bool) error {
	var decodeErr error

	pivot := fmt.Sprintf(`{"user_id":%d}`, userID)
	err := tx.AscendEqual(tokenByUser, pivot, func(key, value string) bool {
		var token core.Token
		if err := json.Unmarshal([]byte(value), &token); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal token %s: %w", key, err)
			return false
		}
		return fn(key, token)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// firstBuntToken finds the oldest token matching address for a user
func firstBuntToken(tx *buntdb.Tx, userID int64, address string) (key string, token core.Token, ok bool, err error) {
	err = userTokens(tx, userID, func(k string, t core.Token) bool {
		if t.Address != address {
			return true
		}
		key, token, ok = k, t, true
		return false
	})
	return key, token, ok, err
}

func setJSON(tx *buntdb.Tx, key string, value any) error {
	content, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if _, _, err := tx.Set(key, string(content), nil); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// AddToken creates the user when needed and stores a new tracked token
func (b *BuntStorage) AddToken(_ context.Context, telegramID int64, address string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		user, ok, err := getUser(tx, telegramID)
		if err != nil {
			return err
		}

		if !ok {
			id, err := nextID(tx, userSeqKey)
			if err != nil {
				return err
			}

			user = core.User{ID: id, TelegramID: telegramID}
			if err := setJSON(tx, userKey(telegramID), user); err != nil {
				return err
			}
		}

		id, err := nextID(tx, tokenSeqKey)
		if err != nil {
			return err
		}

		return setJSON(tx, tokenKey(id), core.Token{
			ID:        id,
			UserID:    user.ID,
			Address:   address,
			LastCheck: b.now(),
		})
	})
}

// ListTokens returns the tokens tracked by a user in insertion order
func (b *BuntStorage) ListTokens(_ context.Context, telegramID int64) ([]core.TrackedToken, error) {
	tokens := make([]core.TrackedToken, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		user, ok, err := getUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		return userTokens(tx, user.ID, func(_ string, token core.Token) bool {
			tokens = append(tokens, tracked(telegramID, token))
			return true
		})
	})
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

// ListAllTracked returns every user's token list keyed by telegram id
func (b *BuntStorage) ListAllTracked(_ context.Context) (map[int64][]core.TrackedToken, error) {
	all := make(map[int64][]core.TrackedToken)

	err := b.db.View(func(tx *buntdb.Tx) error {
		telegramIDs := make(map[int64]int64)

		var decodeErr error
		err := tx.AscendKeys(userPrefix+"*", func(key, value string) bool {
			var user core.User
			if decodeErr = json.Unmarshal([]byte(value), &user); decodeErr != nil {
				decodeErr = fmt.Errorf("failed to unmarshal user %s: %w", key, decodeErr)
				return false
			}
			telegramIDs[user.ID] = user.TelegramID
			return true
		})
		if err != nil {
			return err
		}
		if decodeErr != nil {
			return decodeErr
		}

		err = tx.AscendKeys(tokenPrefix+"*", func(key, value string) bool {
			var token core.Token
			if decodeErr = json.Unmarshal([]byte(value), &token); decodeErr != nil {
				decodeErr = fmt.Errorf("failed to unmarshal token %s: %w", key, decodeErr)
				return false
			}

			telegramID, ok := telegramIDs[token.UserID]
			if ok {
				all[telegramID] = append(all[telegramID], tracked(telegramID, token))
			}
			return true
		})
		if err != nil {
			return err
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

// UpdateCheck stamps the first matching token with the current time and price
func (b *BuntStorage) UpdateCheck(_ context.Context, telegramID int64, address string, price decimal.Decimal) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		user, ok, err := getUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		key, token, ok, err := firstBuntToken(tx, user.ID, address)
		if err != nil || !ok {
			return err
		}

		token.LastCheck = b.now()
		token.LastPrice = decimal.NewNullDecimal(price)
		return setJSON(tx, key, token)
	})
}

// RemoveToken deletes the first matching token
func (b *BuntStorage) RemoveToken(_ context.Context, telegramID int64, address string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		user, ok, err := getUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		key, _, ok, err := firstBuntToken(tx, user.ID, address)
		if err != nil || !ok {
			return err
		}

		if _, err := tx.Delete(key); err != nil {
			return fmt.Errorf("failed to delete token %s: %w", address, err)
		}
		return nil
	})
}

// CountTokens returns how many tokens a user tracks, 0 for unknown users
func (b *BuntStorage) CountTokens(_ context.Context, telegramID int64) (int, error) {
	count := 0

	err := b.db.View(func(tx *buntdb.Tx) error {
		user, ok, err := getUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		return userTokens(tx, user.ID, func(_ string, _ core.Token) bool {
			count++
			return true
		})
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Close closes the database
func (b *BuntStorage) Close() error {
	return b.db.Close()
}

// IsMemory reports whether the path points to an in-memory database
func IsMemory(path string) bool {
	return path == "" || strings.EqualFold(path, memoryTarget)
}
