package s3client

import (
	"bytes"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReadEnvironment(t *testing.T) {
	t.Setenv("TAGGER_S3_REGION", "us-east-2")
	t.Setenv("TAGGER_S3_ENDPOINT", "http://localhost:4566")
	t.Setenv("TAGGER_ENV", "dev")

	nop := zerolog.Nop()
	env, err := readEnvironment(&nop)
	require.NoError(t, err)
	require.Equal(t, EnvironmentConfig{Env: "dev", Region: "us-east-2", Endpoint: "http://localhost:4566"}, env)
}

func TestReadEnvironmentRequiresRegion(t *testing.T) {
	t.Setenv("TAGGER_S3_REGION", "")
	require.NoError(t, os.Unsetenv("TAGGER_S3_REGION"))
	_, err := New()
	require.Error(t, err)
}

func TestEnvConfig(t *testing.T) {
	client := Client{env: EnvironmentConfig{
		Env:         "dev",
		Region:      "us-east-2",
		Endpoint:    "http://localhost:4566",
		AccessKeyID: "id",
		AccessKey:   "key",
	}}
	cfg, err := client.envConfig()
	require.NoError(t, err)
	require.Equal(t, "us-east-2", aws.StringValue(cfg.Region))
	require.Equal(t, "http://localhost:4566", aws.StringValue(cfg.Endpoint))
	require.True(t, aws.BoolValue(cfg.S3ForcePathStyle))

	client.env.Env = "prod"
	cfg, err = client.envConfig()
	require.NoError(t, err)
	require.Nil(t, cfg.Endpoint)

	client.env.AccessKey = ""
	_, err = client.envConfig()
	require.Error(t, err)
}

func TestSDKLogger(t *testing.T) {
	var buf bytes.Buffer
	l := getLogger(zerolog.New(&buf))
	l.Log("DEBUG: Request s3/PutObject")
	require.Contains(t, buf.String(), `"message":"DEBUG: Request s3/PutObject"`)
}
