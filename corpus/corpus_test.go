package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

func testRepository() Repository {
	return Repository{Root: filepath.Join("testdata", "corpora")}
}

func TestParseTaggedToken(t *testing.T) {
	cases := []struct {
		in       string
		sep      string
		expected types.TaggedToken
	}{
		{"dog/nn", "/", types.TaggedToken{Word: "dog", Tag: "NN"}},
		{"1/2/cd", "/", types.TaggedToken{Word: "1/2", Tag: "CD"}},
		{"bare", "/", types.TaggedToken{Word: "bare"}},
		{"Dogs_NNS", "_", types.TaggedToken{Word: "Dogs", Tag: "NNS"}},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, ParseTaggedToken(c.in, c.sep), c.in)
	}
}

func TestResolve(t *testing.T) {
	repo := testRepository()

	t.Run("plain tagged corpus", func(t *testing.T) {
		c, err := repo.Resolve("sample")
		require.NoError(t, err)
		require.Equal(t, Tagged, c.Kind)
		require.Equal(t, []string{"ca01", "ca02"}, c.Fileids())

		sents, err := c.TaggedSents()
		require.NoError(t, err)
		require.Len(t, sents, 4)
		require.Equal(t, types.TaggedToken{Word: "Fulton", Tag: "NP-TL"}, sents[0][1])
		require.Equal(t, "He/PPS said/VBD it/PPO ./.", sents[3].String())
	})

	t.Run("timit resolves to numbered reader", func(t *testing.T) {
		c, err := repo.Resolve("timit")
		require.NoError(t, err)
		require.Equal(t, Numbered, c.Kind)
		require.Equal(t, []string{"dr1-fvmh0.tags"}, c.Fileids())

		sents, err := c.TaggedSents()
		require.NoError(t, err)
		expected := []types.TaggedSentence{
			types.NewTaggedSentence(
				[]string{"she", "had", "your", "dark", "suit"},
				[]string{"PRP", "VBD", "PRP$", "JJ", "NN"}),
			types.NewTaggedSentence(
				[]string{"don't", "ask", "me"},
				[]string{"VB", "VB", "PRP"}),
		}
		if diff := cmp.Diff(expected, sents); diff != "" {
			t.Errorf("unexpected timit sentences (-want +got):\n%s", diff)
		}
	})

	t.Run("switchboard flattens discourses", func(t *testing.T) {
		c, err := repo.Resolve("switchboard")
		require.NoError(t, err)
		require.Equal(t, Discourse, c.Kind)

		discourses, err := c.TaggedDiscourses()
		require.NoError(t, err)
		require.Len(t, discourses, 2)
		require.Len(t, discourses[0], 3)
		require.Equal(t, "B", discourses[0][1].Speaker)
		require.Equal(t, 2, discourses[0][1].ID)
		require.Empty(t, discourses[0][2].Tokens)

		sents, err := c.TaggedSents()
		require.NoError(t, err)
		require.Len(t, sents, 4, "empty utterances are discarded")
		require.Equal(t, "yeah/UH ./.", sents[1].String())
		require.Equal(t, "okay/UH ./.", sents[2].String())
	})

	t.Run("catalogue overrides pattern and separator", func(t *testing.T) {
		c, err := repo.Resolve("custom")
		require.NoError(t, err)
		require.Equal(t, []string{"a.txt"}, c.Fileids())
		require.Equal(t, "_", c.Sep)

		sents, err := c.TaggedSents()
		require.NoError(t, err)
		require.Equal(t, []string{"NNS", "VBP", "."}, sents[1].Tags())
	})

	t.Run("unknown corpus", func(t *testing.T) {
		_, err := repo.Resolve("no_such_corpus")
		require.True(t, errors.Is(err, ErrUnknownCorpus))
		require.Contains(t, err.Error(), "no_such_corpus")
	})

	t.Run("corpus without matching files", func(t *testing.T) {
		_, err := repo.Resolve("empty")
		require.True(t, errors.Is(err, ErrUnknownCorpus))
	})
}

func TestDiscourseAccessOnPlainCorpus(t *testing.T) {
	c, err := testRepository().Resolve("sample")
	require.NoError(t, err)
	_, err = c.TaggedDiscourses()
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	repo := testRepository()

	t.Run("single file path", func(t *testing.T) {
		c, err := repo.Open(filepath.Join("testdata", "corpora", "sample", "ca02"), types.ReaderTagged)
		require.NoError(t, err)
		require.Equal(t, []string{"ca02"}, c.Fileids())
		sents, err := c.TaggedSents()
		require.NoError(t, err)
		require.Len(t, sents, 2)
	})

	t.Run("directory relative to repository", func(t *testing.T) {
		c, err := repo.Open("sample", types.ReaderTagged)
		require.NoError(t, err)
		require.Equal(t, []string{"ca01", "ca02"}, c.Fileids())
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := repo.Open("missing/file.pos", types.ReaderTagged)
		require.True(t, errors.Is(err, ErrUnknownCorpus))
	})
}

func TestMalformedNumberedCorpus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "timit"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timit", "bad.tags"), []byte("one/CD two/CD\n"), 0o644))

	c, err := Repository{Root: dir}.Resolve("timit")
	require.NoError(t, err)
	_, err = c.TaggedSents()
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.tags:1")
}

func TestLoad(t *testing.T) {
	cfg := types.DefaultConfiguration()
	cfg.Corpus = "sample"

	sents, err := Load(testRepository(), cfg, logger.Quiet())
	require.NoError(t, err)
	require.Len(t, sents, 4)

	cfg.Corpus = filepath.Join("testdata", "corpora", "custom", "a.txt")
	cfg.Reader = types.ReaderTagged
	sents, err = Load(testRepository(), cfg, logger.Quiet())
	require.NoError(t, err)
	require.Len(t, sents, 2)
	require.Equal(t, types.TaggedToken{Word: "Dogs_NNS"}, sents[0][0], "explicit reader uses the default separator")
}
