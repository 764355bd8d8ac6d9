package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLStorage implements the core.TokenStorage interface using a SQL database via GORM
type SQLStorage struct {
	base
	db *gorm.DB
}

// Config holds the configuration for SQL database connections
type Config struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a default configuration for SQL connections
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:    5,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
	}
}

// NewFromSQLite creates a new SQLite storage instance
func NewFromSQLite(dbPath string, config Config, gormConfig *gorm.Config, opts ...Option) (*SQLStorage, error) {
	return newFromSQL(sqlite.Open(dbPath), config, gormConfig, opts...)
}

// NewFromPostgres creates a new PostgreSQL storage instance
func NewFromPostgres(dsn string, config Config, gormConfig *gorm.Config, opts ...Option) (*SQLStorage, error) {
	return newFromSQL(postgres.Open(dsn), config, gormConfig, opts...)
}

// newFromSQL creates a new SQL storage instance with the specified configuration
func newFromSQL(dialect gorm.Dialector, config Config, gormConfig *gorm.Config, opts ...Option) (*SQLStorage, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{}
	}

	db, err := gorm.Open(dialect, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.AutoMigrate(&core.User{}, &core.Token{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{
		base: newBase(opts),
		db:   db,
	}, nil
}

// findUser returns the user for a telegram id, ok is false when it does not exist
func findUser(tx *gorm.DB, telegramID int64) (user core.User, ok bool, err error) {
	result := tx.Where("telegram_id = ?", telegramID).Limit(1).Find(&user)
	if result.Error != nil {
		return user, false, fmt.Errorf("failed to find user %d: %w", telegramID, result.Error)
	}
	return user, result.RowsAffected > 0, nil
}

// firstToken returns the oldest token row matching user and address
func firstToken(tx *gorm.DB, userID int64, address string) (token core.Token, ok bool, err error) {
	result := tx.Where("user_id = ? AND address = ?", userID, address).Order("id").Limit(1).Find(&token)
	if result.Error != nil {
		return token, false, fmt.Errorf("failed to find token %s: %w", address, result.Error)
	}
	return token, result.RowsAffected > 0, nil
}

// AddToken creates the user when needed and stores a new tracked token
func (s *SQLStorage) AddToken(ctx context.Context, telegramID int64, address string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := core.User{TelegramID: telegramID}
		if err := tx.Where(core.User{TelegramID: telegramID}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %d: %w", telegramID, err)
		}

		token := core.Token{
			UserID:    user.ID,
			Address:   address,
			LastCheck: s.now(),
		}
		if err := tx.Create(&token).Error; err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}

		return nil
	})
}

// ListTokens returns the tokens tracked by a user in insertion order
func (s *SQLStorage) ListTokens(ctx context.Context, telegramID int64) ([]core.TrackedToken, error) {
	db := s.db.WithContext(ctx)

	user, ok, err := findUser(db, telegramID)
	if err != nil || !ok {
		return []core.TrackedToken{}, err
	}

	var tokens []core.Token
	if err := db.Where("user_id = ?", user.ID).Order("id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}

	return lo.Map(tokens, func(token core.Token, _ int) core.TrackedToken {
		return tracked(telegramID, token)
	}), nil
}

// ListAllTracked returns every user's token list keyed by telegram id
func (s *SQLStorage) ListAllTracked(ctx context.Context) (map[int64][]core.TrackedToken, error) {
	db := s.db.WithContext(ctx)

	var users []core.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	var tokens []core.Token
	if err := db.Order("id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}

	telegramIDs := lo.SliceToMap(users, func(user core.User) (int64, int64) {
		return user.ID, user.TelegramID
	})

	// Orphan tokens, whose user row is gone, are skipped
	tokens = lo.Filter(tokens, func(token core.Token, _ int) bool {
		_, ok := telegramIDs[token.UserID]
		return ok
	})

	all := lo.GroupBy(tokens, func(token core.Token) int64 {
		return telegramIDs[token.UserID]
	})

	return lo.MapValues(all, func(tokens []core.Token, telegramID int64) []core.TrackedToken {
		return lo.Map(tokens, func(token core.Token, _ int) core.TrackedToken {
			return tracked(telegramID, token)
		})
	}), nil
}

// UpdateCheck stamps the first matching token with the current time and price
func (s *SQLStorage) UpdateCheck(ctx context.Context, telegramID int64, address string, price decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, ok, err := findUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		token, ok, err := firstToken(tx, user.ID, address)
		if err != nil || !ok {
			return err
		}

		err = tx.Model(&token).Updates(map[string]any{
			"last_check": s.now(),
			"last_price": decimal.NewNullDecimal(price),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update token %s: %w", address, err)
		}

		return nil
	})
}

// RemoveToken deletes the first matching token
func (s *SQLStorage) RemoveToken(ctx context.Context, telegramID int64, address string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, ok, err := findUser(tx, telegramID)
		if err != nil || !ok {
			return err
		}

		token, ok, err := firstToken(tx, user.ID, address)
		if err != nil || !ok {
			return err
		}

		if err := tx.Delete(&token).Error; err != nil {
			return fmt.Errorf("failed to delete token %s: %w", address, err)
		}

		return nil
	})
}

// CountTokens returns how many tokens a user tracks, 0 for unknown users
func (s *SQLStorage) CountTokens(ctx context.Context, telegramID int64) (int, error) {
	db := s.db.WithContext(ctx)

	user, ok, err := findUser(db, telegramID)
	if err != nil || !ok {
		return 0, err
	}

	var count int64
	if err := db.Model(&core.Token{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return int(count), nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

func tracked(telegramID int64, token core.Token) core.TrackedToken {
	return core.TrackedToken{
		TelegramID: telegramID,
		Address:    token.Address,
		LastCheck:  token.LastCheck,
		LastPrice:  token.LastPrice,
	}
}
