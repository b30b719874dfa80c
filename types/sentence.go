package types

import "strings"

// TaggedSentence is an ordered sequence of tagged tokens.
type TaggedSentence []TaggedToken

func NewTaggedSentence(words []string, tags []string) TaggedSentence {
	sent := make(TaggedSentence, len(words))
	for i, word := range words {
		sent[i].Word = word
		if i < len(tags) {
			sent[i].Tag = tags[i]
		}
	}
	return sent
}

func (sent TaggedSentence) Words() []string {
	words := make([]string, len(sent))
	for i, token := range sent {
		words[i] = token.Word
	}
	return words
}

func (sent TaggedSentence) Tags() []string {
	tags := make([]string, len(sent))
	for i, token := range sent {
		tags[i] = token.Tag
	}
	return tags
}

func (sent TaggedSentence) String() string {
	parts := make([]string, len(sent))
	for i, token := range sent {
		parts[i] = token.String()
	}
	return strings.Join(parts, " ")
}

// CountTokens returns the total number of tokens in sents.
func CountTokens(sents []TaggedSentence) int {
	n := 0
	for _, sent := range sents {
		n += len(sent)
	}
	return n
}
