package pipeline

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"text2phenotype.com/tagtrainer/rmq"
	"text2phenotype.com/tagtrainer/types"
	"text2phenotype.com/tagtrainer/utils"
)

// RunReport summarizes one training run.
type RunReport struct {
	Corpus           string   `json:"corpus"`
	Classifier       string   `json:"classifier"`
	Brill            bool     `json:"brill"`
	Tagger           string   `json:"tagger"`
	Sentences        int      `json:"sentences"`
	TrainSentences   int      `json:"train_sentences"`
	TestSentences    int      `json:"test_sentences"`
	Accuracy         *float64 `json:"accuracy,omitempty"`
	SentenceAccuracy *float64 `json:"sentence_accuracy,omitempty"`
	Fingerprint      string   `json:"fingerprint"`
	Destination      string   `json:"destination,omitempty"`
	DurationSeconds  float64  `json:"duration_seconds"`
}

// Fingerprint identifies a training set by the murmur3 hashes of its
// sentences, in order.
func Fingerprint(sents []types.TaggedSentence) string {
	lines := make([]string, len(sents))
	for i, sent := range sents {
		lines[i] = sent.String()
	}
	hashes := utils.HashStrings(lines)
	buf := make([]byte, 8*len(hashes))
	for i, h := range hashes {
		binary.LittleEndian.PutUint64(buf[8*i:], h)
	}
	return fmt.Sprintf("%016x", utils.HashBytes(buf))
}

func WriteReport(path string, report RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0o644)
}

// ReportPublisher sends run reports to a message queue.
type ReportPublisher interface {
	Publish(ctx context.Context, body []byte) error
	Close()
}

// DefaultPublisher returns an AMQP publisher when the broker is configured in
// the environment, and nil otherwise.
func DefaultPublisher() (ReportPublisher, error) {
	if !rmq.Configured() {
		return nil, nil
	}
	client, err := rmq.NewPublisher()
	if err != nil {
		return nil, err
	}
	return client, nil
}

func publishReport(ctx context.Context, publisher ReportPublisher, report RunReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, body)
}

func durationSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
