package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pribylovaa/student-portal/internal/config"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	defaultDBName   = "portal"

	emailIndex = "uniq_email"
	phoneIndex = "uniq_phone"
	resetIndex = "reset_token"
)

// Mongo — адаптер хранилища пользователей поверх MongoDB.
// Клиент создаётся один раз на процесс и закрывается через Close.
type Mongo struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	users  *mongodriver.Collection

	skew time.Duration
	now  func() time.Time
}

// Option настраивает адаптер.
type Option func(*Mongo)

// WithClock подменяет источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Mongo) { m.now = now }
}

// New подключается к MongoDB с повторами, проверяет соединение и создаёт индексы.
// Число попыток и начальная задержка берутся из cfg.DB; между попытками
// задержка растёт экспоненциально.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	cli, err := connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	db := cli.Database(databaseFromURI(cfg.DB.URL))

	m := &Mongo{
		client: cli,
		db:     db,
		users:  db.Collection(usersCollection),
		skew:   cfg.Auth.ChangeSkew,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// connect выполняет ограниченное число попыток Connect+Ping.
func connect(ctx context.Context, cfg config.DBConfig) (*mongodriver.Client, error) {
	log := logctx.From(ctx)

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RetryDelay
	bo.MaxInterval = 8 * cfg.RetryDelay
	bo.Multiplier = 2

	clientOpts := options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)

	var lastErr error
	for attempt := uint(1); attempt <= attempts; attempt++ {
		cli, err := mongodriver.Connect(ctx, clientOpts)
		if err == nil {
			if err = cli.Ping(ctx, readpref.Primary()); err == nil {
				log.Info("mongo_connected", "attempt", attempt)
				return cli, nil
			}
			_ = cli.Disconnect(context.Background())
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := bo.NextBackOff()
		log.Warn("mongo_connect_retry", "attempt", attempt, "max_attempts", attempts, "retry_in", wait, "err", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mongo connect: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("mongo connect: %d attempts failed: %w", attempts, lastErr)
}

// Close отключает клиента.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary (для /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes создаёт индексы коллекции пользователей.
// - уникальный email;
// - уникальный телефон (только у документов, где он задан);
// - поиск по хэшу токена сброса (sparse: у большинства пользователей поля нет).
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetName(phoneIndex).SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "phone", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetName(resetIndex).SetSparse(true),
		},
	}

	if _, err := m.users.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из пути mongodb URI.
// Если его нет, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}
