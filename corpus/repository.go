package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

// CatalogueFile is the optional per-corpus description file.
const CatalogueFile = "corpus.yaml"

var ErrUnknownCorpus = errors.New("unknown corpus")

var corpusLogger = logger.NewLogger("Corpus")

// Catalogue describes how the files of a corpus directory are read.
type Catalogue struct {
	Reader  Kind   `yaml:"reader"`
	Pattern string `yaml:"pattern"`
	Sep     string `yaml:"sep"`
}

// builtinCatalogues are corpora whose layout is known without a catalogue file.
var builtinCatalogues = map[string]Catalogue{
	"timit":       {Reader: Numbered, Pattern: `.+\.tags`},
	"switchboard": {Reader: Discourse, Pattern: `tagged`},
}

func defaultCatalogue() Catalogue {
	return Catalogue{Reader: Tagged, Pattern: `.*`, Sep: DefaultSep}
}

// Repository resolves corpora by name below a root directory.
type Repository struct {
	Root string
}

func NewRepository(dataPath string) Repository {
	return Repository{Root: filepath.Join(dataPath, "corpora")}
}

// Resolve looks a corpus up by name and lists its files.
func (repo Repository) Resolve(name string) (*Corpus, error) {
	root := filepath.Join(repo.Root, filepath.FromSlash(name))
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s (looked in %s)", ErrUnknownCorpus, name, repo.Root)
	}

	catalogue, ok := builtinCatalogues[name]
	if !ok {
		catalogue = defaultCatalogue()
	}
	if err := readCatalogue(filepath.Join(root, CatalogueFile), &catalogue); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", name, err)
	}

	c, err := newCorpus(name, root, catalogue)
	if err != nil {
		return nil, err
	}
	if len(c.Fileids()) == 0 {
		return nil, fmt.Errorf("%w: %s has no files matching %q", ErrUnknownCorpus, name, catalogue.Pattern)
	}
	return c, nil
}

// Open reads the corpus at path with an explicit reader. A relative path that
// does not exist is looked up below the repository root.
func (repo Repository) Open(path string, reader types.ReaderKind) (*Corpus, error) {
	if reader != types.ReaderTagged {
		return nil, fmt.Errorf("unsupported reader %q", reader)
	}
	if _, err := os.Stat(path); err != nil && !filepath.IsAbs(path) {
		path = filepath.Join(repo.Root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCorpus, path)
	}

	catalogue := defaultCatalogue()
	root := path
	if !info.IsDir() {
		root = filepath.Dir(path)
		catalogue.Pattern = regexp.QuoteMeta(filepath.Base(path))
	}
	c, err := newCorpus(filepath.Base(path), root, catalogue)
	if err != nil {
		return nil, err
	}
	if len(c.Fileids()) == 0 {
		return nil, fmt.Errorf("%w: %s has no files", ErrUnknownCorpus, path)
	}
	return c, nil
}

func readCatalogue(path string, catalogue *Catalogue) error {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(buf, catalogue); err != nil {
		return fmt.Errorf("parse %s: %w", CatalogueFile, err)
	}
	return nil
}

func listFileids(root string, pattern string) ([]string, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("bad fileid pattern %q: %w", pattern, err)
	}

	var fileids []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || name == CatalogueFile || strings.HasPrefix(name, "README") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if re.MatchString(rel) {
			fileids = append(fileids, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(fileids)
	return fileids, nil
}
