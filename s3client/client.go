package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"text2phenotype.com/tagtrainer/logger"
)

var ErrNoSession = errors.New("could not initialize S3 session")

type Client struct {
	sess *session.Session
	env  EnvironmentConfig
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

// New opens a session with the instance role, falling back to the static
// credentials in the environment.
func New() (*Client, error) {
	errLogger := clientLogger.With().Caller().Logger()
	env, err := readEnvironment(&errLogger)
	if err != nil {
		return nil, err
	}
	client := Client{env: env}
	if err := client.acquireSession(); err != nil {
		return nil, err
	}
	return &client, nil
}

func (client *Client) Upload(ctx context.Context, bucket string, key string, data []byte) error {
	params := &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	objLogger := clientLogger.With().Str("key", key).Str("bucket", bucket).Logger()
	sdkLog := sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()

	uploader := s3manager.NewUploader(client.sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	objLogger.Debug().Int("bytes", len(data)).Msg("Uploading the file")
	if _, err := uploader.UploadWithContext(ctx, params); err != nil {
		objLogger.Error().Err(err).Msg("Failed to upload file")
		return err
	}
	return nil
}

func (client *Client) Download(ctx context.Context, bucket string, key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	objLogger := clientLogger.With().Str("key", key).Str("bucket", bucket).Logger()
	sdkLog := sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()

	downloader := s3manager.NewDownloader(client.sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})
	objLogger.Debug().Msg("Downloading file")
	size, err := downloader.DownloadWithContext(ctx, buf, params)
	if err != nil {
		objLogger.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	objLogger.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}

func (client *Client) ec2Config() *aws.Config {
	return &aws.Config{
		Region:     aws.String(client.env.Region),
		MaxRetries: aws.Int(4),
		LogLevel:   aws.LogLevel(aws.LogDebug),
	}
}

func (client *Client) envConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("credentials from environment: %w", err)
	}
	cfg := aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)

	if client.env.Env == "dev" && len(client.env.Endpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.Endpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

func (client *Client) acquireSession() error {
	sess, err := session.NewSession(client.ec2Config())
	if err == nil {
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err == nil {
			client.sess = sess
			clientLogger.Info().Msg("S3 session successfully initialized using EC2")
			return nil
		}
	}
	clientLogger.Info().Msg("Could not initialize S3 session using EC2, trying env credentials")

	cfg, err := client.envConfig()
	if err != nil {
		clientLogger.Error().Err(err).Msg("Error with credentials from environment")
		return fmt.Errorf("%w: %s", ErrNoSession, err)
	}
	sess, err = session.NewSession(cfg)
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return fmt.Errorf("%w: %s", ErrNoSession, err)
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return ErrNoSession
	}
	client.sess = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
}

type EnvironmentConfig struct {
	Env         string `envconfig:"TAGGER_ENV" default:""`
	Region      string `envconfig:"TAGGER_S3_REGION" required:"true"`
	Endpoint    string `envconfig:"TAGGER_S3_ENDPOINT" default:""`
	AccessKeyID string `envconfig:"TAGGER_S3_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"TAGGER_S3_ACCESS_KEY" default:""`
}

func readEnvironment(errLogger *zerolog.Logger) (EnvironmentConfig, error) {
	var config EnvironmentConfig
	err := envconfig.Process("", &config)
	if err != nil {
		errLogger.Err(err).Msg("Got error while processing environment")
		return config, err
	}
	return config, nil
}

type s3Logger struct {
	zl zerolog.Logger
}

func getLogger(zl zerolog.Logger) *s3Logger {
	return &s3Logger{zl}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.zl.Debug().Msg(fmt.Sprint(v...))
}
