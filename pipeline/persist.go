package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/redis"
	"text2phenotype.com/tagtrainer/s3client"
	"text2phenotype.com/tagtrainer/types"
)

var ErrUnsupportedDestination = errors.New("unsupported destination")

var persistLogger = logger.NewLogger("Persister")

// Destination schemes.
const (
	SchemeFile  = "file"
	SchemeS3    = "s3"
	SchemeRedis = "redis"
)

// Destination is where a serialized tagger is written.
type Destination struct {
	Scheme string
	// Path for files, bucket for S3.
	Path string
	Key  string
}

func (d Destination) String() string {
	switch d.Scheme {
	case SchemeS3:
		return fmt.Sprintf("s3://%s/%s", d.Path, d.Key)
	case SchemeRedis:
		return "redis://" + d.Key
	}
	return d.Path
}

// ParseDestination accepts s3://bucket/key, redis://key or a file path.
func ParseDestination(s string) (Destination, error) {
	switch {
	case strings.HasPrefix(s, "s3://"):
		rest := strings.TrimPrefix(s, "s3://")
		idx := strings.Index(rest, "/")
		if idx <= 0 || idx == len(rest)-1 {
			return Destination{}, fmt.Errorf("%w: %s needs a bucket and a key", ErrUnsupportedDestination, s)
		}
		return Destination{Scheme: SchemeS3, Path: rest[:idx], Key: rest[idx+1:]}, nil
	case strings.HasPrefix(s, "redis://"):
		key := strings.TrimPrefix(s, "redis://")
		if key == "" {
			return Destination{}, fmt.Errorf("%w: %s needs a key", ErrUnsupportedDestination, s)
		}
		return Destination{Scheme: SchemeRedis, Key: key}, nil
	case strings.Contains(s, "://"):
		return Destination{}, fmt.Errorf("%w: %s", ErrUnsupportedDestination, s)
	}
	return Destination{Scheme: SchemeFile, Path: s}, nil
}

// DefaultFilename is <data path>/taggers/<corpus base>_<classifier>[_brill].json.
// Without a classifier the name uses Unigram, the initial Brill tagger.
func DefaultFilename(env types.Environment, cfg types.Configuration) string {
	kind := string(cfg.Classifier)
	if cfg.Classifier == types.ClassifierNone {
		kind = "Unigram"
	}
	name := corpusBase(cfg.Corpus) + "_" + kind
	if cfg.Brill {
		name += "_brill"
	}
	return filepath.Join(env.DataPath, "taggers", name+".json")
}

func corpusBase(corpus string) string {
	base := filepath.Base(filepath.Clean(corpus))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// BlobUploader stores objects in a bucket.
type BlobUploader interface {
	Upload(ctx context.Context, bucket string, key string, data []byte) error
}

// ModelSaver stores serialized models under a key.
type ModelSaver interface {
	SaveModel(ctx context.Context, key string, data []byte) error
	Close() error
}

// Persister writes serialized taggers. Remote clients are created on first
// use.
type Persister struct {
	NewS3    func() (BlobUploader, error)
	NewRedis func() (ModelSaver, error)
}

// DefaultPersister connects to S3 and Redis with the settings found in the
// environment.
func DefaultPersister() Persister {
	return Persister{
		NewS3: func() (BlobUploader, error) {
			client, err := s3client.New()
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		NewRedis: func() (ModelSaver, error) {
			client, err := redis.NewClient(redis.DBModels)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

func (p Persister) Persist(ctx context.Context, dest Destination, data []byte) error {
	errLogger := persistLogger.With().Caller().Str("destination", dest.String()).Logger()
	switch dest.Scheme {
	case SchemeFile:
		if dir := filepath.Dir(dest.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errLogger.Err(err).Msg("Failed to create tagger directory")
				return err
			}
		}
		if err := ioutil.WriteFile(dest.Path, data, 0o644); err != nil {
			errLogger.Err(err).Msg("Failed to write tagger")
			return err
		}
	case SchemeS3:
		if p.NewS3 == nil {
			return fmt.Errorf("%w: no S3 client", ErrUnsupportedDestination)
		}
		client, err := p.NewS3()
		if err != nil {
			errLogger.Err(err).Msg("Failed to create S3 client")
			return err
		}
		if err := client.Upload(ctx, dest.Path, dest.Key, data); err != nil {
			errLogger.Err(err).Msg("Failed to upload tagger")
			return err
		}
	case SchemeRedis:
		if p.NewRedis == nil {
			return fmt.Errorf("%w: no Redis client", ErrUnsupportedDestination)
		}
		client, err := p.NewRedis()
		if err != nil {
			errLogger.Err(err).Msg("Failed to create Redis client")
			return err
		}
		defer client.Close()
		if err := client.SaveModel(ctx, dest.Key, data); err != nil {
			errLogger.Err(err).Msg("Failed to save tagger")
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDestination, dest.Scheme)
	}
	persistLogger.Info().Str("destination", dest.String()).Int("bytes", len(data)).Msg("Persisted tagger")
	return nil
}
