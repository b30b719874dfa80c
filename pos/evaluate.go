package pos

import "text2phenotype.com/tagtrainer/types"

// Evaluation summarizes a tagger's agreement with gold tagged sentences.
// Accuracy is token level.
type Evaluation struct {
	Tokens           int     `json:"tokens"`
	Correct          int     `json:"correct"`
	Sentences        int     `json:"sentences"`
	CorrectSentences int     `json:"correct_sentences"`
	Accuracy         float64 `json:"accuracy"`
	SentenceAccuracy float64 `json:"sentence_accuracy"`
}

// Evaluate retags the words of gold and compares the result tag by tag. An
// empty gold set has accuracy 0.
func Evaluate(t Tagger, gold []types.TaggedSentence) Evaluation {
	var ev Evaluation
	for _, sent := range gold {
		predicted := t.Tag(sent.Words())
		exact := true
		for i, token := range sent {
			ev.Tokens++
			if i < len(predicted) && predicted[i] == token.Tag {
				ev.Correct++
			} else {
				exact = false
			}
		}
		ev.Sentences++
		if exact {
			ev.CorrectSentences++
		}
	}
	if ev.Tokens > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Tokens)
	}
	if ev.Sentences > 0 {
		ev.SentenceAccuracy = float64(ev.CorrectSentences) / float64(ev.Sentences)
	}
	return ev
}
