package pipeline

import (
	"context"
	"fmt"
	"io/ioutil"

	"text2phenotype.com/tagtrainer/pos"
	"text2phenotype.com/tagtrainer/redis"
	"text2phenotype.com/tagtrainer/s3client"
)

// BlobDownloader reads objects from a bucket.
type BlobDownloader interface {
	Download(ctx context.Context, bucket string, key string) ([]byte, error)
}

// ModelLoader reads serialized models stored under a key.
type ModelLoader interface {
	LoadModel(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// Loader reads back taggers from the destinations a Persister writes.
type Loader struct {
	NewS3    func() (BlobDownloader, error)
	NewRedis func() (ModelLoader, error)
}

func DefaultLoader() Loader {
	return Loader{
		NewS3: func() (BlobDownloader, error) {
			client, err := s3client.New()
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		NewRedis: func() (ModelLoader, error) {
			client, err := redis.NewClient(redis.DBModels)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Read returns the serialized tagger stored at dest.
func (l Loader) Read(ctx context.Context, dest Destination) ([]byte, error) {
	errLogger := persistLogger.With().Caller().Str("destination", dest.String()).Logger()
	switch dest.Scheme {
	case SchemeFile:
		data, err := ioutil.ReadFile(dest.Path)
		if err != nil {
			errLogger.Err(err).Msg("Failed to read tagger")
		}
		return data, err
	case SchemeS3:
		if l.NewS3 == nil {
			return nil, fmt.Errorf("%w: no S3 client", ErrUnsupportedDestination)
		}
		client, err := l.NewS3()
		if err != nil {
			errLogger.Err(err).Msg("Failed to create S3 client")
			return nil, err
		}
		return client.Download(ctx, dest.Path, dest.Key)
	case SchemeRedis:
		if l.NewRedis == nil {
			return nil, fmt.Errorf("%w: no Redis client", ErrUnsupportedDestination)
		}
		client, err := l.NewRedis()
		if err != nil {
			errLogger.Err(err).Msg("Failed to create Redis client")
			return nil, err
		}
		defer client.Close()
		data, err := client.LoadModel(ctx, dest.Key)
		if err != nil {
			errLogger.Err(err).Msg("Failed to load tagger")
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDestination, dest.Scheme)
}

// Load decodes the tagger stored at location, a file path, s3://bucket/key
// or redis://key.
func (l Loader) Load(ctx context.Context, location string) (pos.Tagger, pos.Envelope, error) {
	dest, err := ParseDestination(location)
	if err != nil {
		return nil, pos.Envelope{}, err
	}
	data, err := l.Read(ctx, dest)
	if err != nil {
		return nil, pos.Envelope{}, fmt.Errorf("reading tagger from %s: %w", dest, err)
	}
	return pos.Unmarshal(data)
}
