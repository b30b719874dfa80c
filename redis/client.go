package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"text2phenotype.com/tagtrainer/logger"
)

type DB int

// DBModels holds serialized taggers.
const DBModels DB = 2

type ReleaseLock func() error

var clientLogger = logger.NewLogger("Redis client")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
	lockRetries    int
}

type Config struct {
	LockExpirationSeconds   int     `envconfig:"TAGGER_REDIS_LOCK_EXPIRATION" default:"30"`
	LockRetries             int     `envconfig:"TAGGER_REDIS_LOCK_RETRIES" default:"20"`
	Host                    string  `envconfig:"TAGGER_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"TAGGER_REDIS_PORT" default:"6379"`
	HASentinelPort          string  `envconfig:"TAGGER_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"TAGGER_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"TAGGER_REDIS_AUTH_PASSWORD" default:""`
	AuthRequired            bool    `envconfig:"TAGGER_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"TAGGER_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"TAGGER_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (*Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		clientLogger.Err(err).Msg("Could not read env config")
		return nil, err
	}
	return newClient(cfg, db), nil
}

func newClient(cfg *Config, db DB) *Client {
	var client redis.UniversalClient
	if cfg.HAMode {
		client = redis.NewFailoverClusterClient(failoverOptions(cfg, db))
	} else {
		client = redis.NewClient(options(cfg, db))
	}
	return &Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
		lockRetries:    cfg.LockRetries,
	}
}

func failoverOptions(cfg *Config, db DB) *redis.FailoverOptions {
	timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
	opts := redis.FailoverOptions{
		SentinelAddrs: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		opts.Password = cfg.Password
	}
	return &opts
}

func options(cfg *Config, db DB) *redis.Options {
	opts := redis.Options{
		Addr:       fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		opts.Password = cfg.Password
	}
	return &opts
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// Lock obtains the lock guarding key, retrying once a second.
func (client *Client) Lock(ctx context.Context, key string) (ReleaseLock, error) {
	locker := redislock.New(client.client)
	strategy := redislock.LimitRetry(redislock.LinearBackoff(time.Second), client.lockRetries)
	lock, err := locker.Obtain(ctx, lockKey(key), client.lockExpiration, &redislock.Options{RetryStrategy: strategy})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

// SaveModel writes data under key while holding the key's lock, so that
// concurrent runs targeting the same key do not interleave.
func (client *Client) SaveModel(ctx context.Context, key string, data []byte) (err error) {
	errLogger := clientLogger.With().Caller().Str("key", key).Logger()
	release, err := client.Lock(ctx, key)
	if err != nil {
		errLogger.Err(err).Msg("Could not obtain lock")
		return err
	}
	defer func() {
		if releaseErr := release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	if err := client.client.Set(ctx, key, data, 0).Err(); err != nil {
		errLogger.Err(err).Msg("Could not save model")
		return err
	}
	clientLogger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Saved model")
	return nil
}

func (client *Client) LoadModel(ctx context.Context, key string) ([]byte, error) {
	return client.client.Get(ctx, key).Bytes()
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
