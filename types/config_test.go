package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClassifierKind(t *testing.T) {
	for _, kind := range ClassifierKinds() {
		parsed, err := ParseClassifierKind(string(kind))
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}

	_, err := ParseClassifierKind("Perceptron")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Perceptron")

	_, err = ParseClassifierKind("maxent")
	require.Error(t, err, "choices are case sensitive")
}

func TestClassifierKindFamilies(t *testing.T) {
	require.True(t, Maxent.IsMaxent())
	require.False(t, Maxent.IsMaxentAlgorithm())
	require.True(t, MaxentIIS.IsMaxent())
	require.True(t, MaxentIIS.IsMaxentAlgorithm())
	require.False(t, NaiveBayes.IsMaxent())
	require.False(t, ClassifierNone.IsMaxent())
}

func TestReaderKind(t *testing.T) {
	var kind ReaderKind
	require.NoError(t, kind.UnmarshalText([]byte("tagged")))
	require.Equal(t, ReaderTagged, kind)
	require.Error(t, kind.UnmarshalText([]byte("conll")))
}

func TestConfigurationValidate(t *testing.T) {
	t.Run("defaults without tagger", func(t *testing.T) {
		cfg := DefaultConfiguration()
		require.True(t, errors.Is(cfg.Validate(), ErrNoTaggerConfigured))
	})
	t.Run("classifier only", func(t *testing.T) {
		cfg := DefaultConfiguration()
		cfg.Classifier = NaiveBayes
		require.NoError(t, cfg.Validate())
	})
	t.Run("brill only", func(t *testing.T) {
		cfg := DefaultConfiguration()
		cfg.Brill = true
		require.NoError(t, cfg.Validate())
	})
	t.Run("fraction bounds", func(t *testing.T) {
		cfg := DefaultConfiguration()
		cfg.Classifier = Maxent
		for _, f := range []float64{0, -0.1, 1.01} {
			cfg.Fraction = f
			require.True(t, errors.Is(cfg.Validate(), ErrInvalidFraction), "fraction %v", f)
		}
		cfg.Fraction = 1.0
		require.NoError(t, cfg.Validate())
		cfg.Fraction = 0.01
		require.NoError(t, cfg.Validate())
	})
}

func TestReadEnvironment(t *testing.T) {
	t.Setenv("TAGGER_DATA_PATH", "/srv/corpora")
	env, err := ReadEnvironment()
	require.NoError(t, err)
	require.Equal(t, "/srv/corpora", env.DataPath)
}
