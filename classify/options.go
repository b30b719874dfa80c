package classify

import (
	"fmt"
	"sort"
	"strings"

	"text2phenotype.com/tagtrainer/logger"
)

// Options are the keyword arguments passed to a TrainFunc.
type Options map[string]interface{}

// TracerOption carries the logger.Tracer a trainer writes its progress to.
// Every trainer accepts it.
const TracerOption = "tracer"

// check rejects keys a trainer does not understand.
func (opts Options) check(trainer string, allowed ...string) error {
	known := map[string]bool{TracerOption: true}
	for _, key := range allowed {
		known[key] = true
	}
	var unknown []string
	for key := range opts {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s: unexpected options %s", trainer, strings.Join(unknown, ", "))
	}
	return nil
}

func (opts Options) Int(key string, def int) (int, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return def, fmt.Errorf("option %s: expected an integer, got %v", key, v)
}

func (opts Options) Float(key string, def float64) (float64, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return def, fmt.Errorf("option %s: expected a number, got %v", key, v)
}

func (opts Options) Bool(key string, def bool) (bool, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return def, fmt.Errorf("option %s: expected a boolean, got %v", key, v)
	}
	return b, nil
}

func (opts Options) String(key string, def string) (string, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return def, fmt.Errorf("option %s: expected a string, got %v", key, v)
	}
	return s, nil
}

// Has reports whether key was given.
func (opts Options) Has(key string) bool {
	_, ok := opts[key]
	return ok
}

// Tracer returns the tracer under TracerOption at the level given by
// levelKey. Without a TracerOption the trainer traces to stdout.
func (opts Options) Tracer(levelKey string) (logger.Tracer, error) {
	level, err := opts.Int(levelKey, 0)
	if err != nil {
		return logger.Tracer{}, err
	}
	tracer := logger.NewTracer(level)
	v, ok := opts[TracerOption]
	if !ok {
		return tracer, nil
	}
	given, ok := v.(logger.Tracer)
	if !ok {
		return tracer, fmt.Errorf("option %s: expected a logger.Tracer, got %T", TracerOption, v)
	}
	tracer.Out = given.Out
	return tracer, nil
}
