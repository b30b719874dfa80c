package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"text2phenotype.com/tagtrainer/types"
)

// DefaultSep separates a word from its tag.
const DefaultSep = "/"

const maxLineLength = 1024 * 1024

var utteranceRe = regexp.MustCompile(`^(\w+)\.(\d+):\s*(.*)$`)

// ParseTaggedToken splits "word/TAG" at the last separator. Tags are upper
// cased; a token without a separator has an empty tag.
func ParseTaggedToken(s string, sep string) types.TaggedToken {
	loc := strings.LastIndex(s, sep)
	if loc < 0 {
		return types.TaggedToken{Word: s}
	}
	return types.TaggedToken{
		Word: s[:loc],
		Tag:  strings.ToUpper(s[loc+len(sep):]),
	}
}

func parseTaggedFields(fields []string, sep string) types.TaggedSentence {
	sent := make(types.TaggedSentence, len(fields))
	for i, field := range fields {
		sent[i] = ParseTaggedToken(field, sep)
	}
	return sent
}

func scanLines(path string, fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanReader(f, path, fn)
}

func scanReader(r io.Reader, name string, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := fn(lineNo, scanner.Text()); err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func readTaggedSents(path string, sep string) ([]types.TaggedSentence, error) {
	var sents []types.TaggedSentence
	err := scanLines(path, func(_ int, line string) error {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			sents = append(sents, parseTaggedFields(fields, sep))
		}
		return nil
	})
	return sents, err
}

func readNumberedSents(path string, sep string) ([]types.TaggedSentence, error) {
	var sents []types.TaggedSentence
	err := scanLines(path, func(_ int, line string) error {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			return fmt.Errorf("expected a sentence number, got %q", fields[0])
		}
		sents = append(sents, parseTaggedFields(fields[1:], sep))
		return nil
	})
	return sents, err
}

func readDiscourses(path string, sep string) ([]TaggedDiscourse, error) {
	var discourses []TaggedDiscourse
	var current TaggedDiscourse
	err := scanLines(path, func(_ int, line string) error {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				discourses = append(discourses, current)
				current = nil
			}
			return nil
		}
		m := utteranceRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return fmt.Errorf("malformed utterance %q", line)
		}
		id, err := strconv.Atoi(m[2])
		if err != nil {
			return err
		}
		current = append(current, Utterance{
			Speaker: m[1],
			ID:      id,
			Tokens:  parseTaggedFields(strings.Fields(m[3]), sep),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		discourses = append(discourses, current)
	}
	return discourses, nil
}
