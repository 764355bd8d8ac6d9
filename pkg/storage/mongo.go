package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage implements the core.TokenStorage interface using MongoDB.
// Tokens reference their owner by telegram id, the users collection only
// records who has ever added a token.
type MongoStorage struct {
	base
	client *mongo.Client
	users  *mongo.Collection
	tokens *mongo.Collection
}

type mongoToken struct {
	ID         primitive.ObjectID    `bson:"_id,omitempty"`
	TelegramID int64                 `bson:"telegram_id"`
	Address    string                `bson:"address"`
	LastCheck  time.Time             `bson:"last_check"`
	LastPrice  *primitive.Decimal128 `bson:"last_price"`
}

// oldestFirst makes single-document operations hit the first inserted match
var oldestFirst = bson.D{{Key: "_id", Value: 1}}

// NewFromMongo connects to MongoDB and prepares the collections and indexes
func NewFromMongo(ctx context.Context, uri, dbName string, opts ...Option) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStorage{
		base:   newBase(opts),
		client: client,
		users:  db.Collection("users"),
		tokens: db.Collection("tokens"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *MongoStorage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "telegram_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "telegram_id", Value: 1}, {Key: "address", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tokens index: %w", err)
	}

	return nil
}

// AddToken creates the user when needed and stores a new tracked token
func (s *MongoStorage) AddToken(ctx context.Context, telegramID int64, address string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$setOnInsert": bson.M{"created_at": s.now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create user %d: %w", telegramID, err)
	}

	_, err = s.tokens.InsertOne(ctx, mongoToken{
		TelegramID: telegramID,
		Address:    address,
		LastCheck:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M) ([]core.TrackedToken, error) {
	cur, err := s.tokens.Find(ctx, filter, options.Find().SetSort(oldestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]core.TrackedToken, 0)
	for cur.Next(ctx) {
		var doc mongoToken
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode token: %w", err)
		}

		token, err := doc.tracked()
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}

	return out, cur.Err()
}

// ListTokens returns the tokens tracked by a user in insertion order
func (s *MongoStorage) ListTokens(ctx context.Context, telegramID int64) ([]core.TrackedToken, error) {
	return s.find(ctx, bson.M{"telegram_id": telegramID})
}

// ListAllTracked returns every user's token list keyed by telegram id
func (s *MongoStorage) ListAllTracked(ctx context.Context) (map[int64][]core.TrackedToken, error) {
	tokens, err := s.find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	all := make(map[int64][]core.TrackedToken)
	for _, token := range tokens {
		all[token.TelegramID] = append(all[token.TelegramID], token)
	}
	return all, nil
}

// UpdateCheck stamps the first matching token with the current time and price
func (s *MongoStorage) UpdateCheck(ctx context.Context, telegramID int64, address string, price decimal.Decimal) error {
	value, err := primitive.ParseDecimal128(price.String())
	if err != nil {
		return fmt.Errorf("failed to encode price %s: %w", price, err)
	}

	err = s.tokens.FindOneAndUpdate(ctx,
		bson.M{"telegram_id": telegramID, "address": address},
		bson.M{"$set": bson.M{"last_check": s.now(), "last_price": value}},
		options.FindOneAndUpdate().SetSort(oldestFirst),
	).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to update token %s: %w", address, err)
	}

	return nil
}

// RemoveToken deletes the first matching token
func (s *MongoStorage) RemoveToken(ctx context.Context, telegramID int64, address string) error {
	err := s.tokens.FindOneAndDelete(ctx,
		bson.M{"telegram_id": telegramID, "address": address},
		options.FindOneAndDelete().SetSort(oldestFirst),
	).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to delete token %s: %w", address, err)
	}

	return nil
}

// CountTokens returns how many tokens a user tracks, 0 for unknown users
func (s *MongoStorage) CountTokens(ctx context.Context, telegramID int64) (int, error) {
	count, err := s.tokens.CountDocuments(ctx, bson.M{"telegram_id": telegramID})
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return int(count), nil
}

// Close disconnects the client
func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func (t mongoToken) tracked() (core.TrackedToken, error) {
	token := core.TrackedToken{
		TelegramID: t.TelegramID,
		Address:    t.Address,
		LastCheck:  t.LastCheck,
	}

	if t.LastPrice != nil {
		price, err := decimal.NewFromString(t.LastPrice.String())
		if err != nil {
			return token, fmt.Errorf("failed to decode price of %s: %w", t.Address, err)
		}
		token.LastPrice = decimal.NewNullDecimal(price)
	}

	return token, nil
}
