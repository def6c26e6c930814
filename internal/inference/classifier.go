package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Runtime runs one forward pass over a preprocessed single-sample batch and
// returns the model's scalar score. Implementations need not be safe for
// concurrent use.
type Runtime interface {
	Predict(input []float32) (float32, error)
	Close() error
}

// Classifier turns uploaded image bytes into a positive-class probability.
type Classifier struct {
	rt      Runtime
	timeout time.Duration
	log     logrus.FieldLogger

	// sem holds one token while the runtime is busy. Callers whose context
	// ends before they get it never reach the runtime.
	sem chan struct{}
}

func NewClassifier(rt Runtime, timeout time.Duration, logger logrus.FieldLogger) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{rt: rt, timeout: timeout, log: logger, sem: make(chan struct{}, 1)}
}

type prediction struct {
	score float32
	err   error
}

// Classify preprocesses raw and returns the model score in [0,1].
func (c *Classifier) Classify(ctx context.Context, raw []byte) (float32, error) {
	input, err := Preprocess(raw)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return 0, contextError(ctx)
	}
	if ctx.Err() != nil {
		<-c.sem
		return 0, contextError(ctx)
	}

	// The token is released when Predict returns, even if the caller has
	// given up by then.
	done := make(chan prediction, 1)
	go func() {
		defer func() { <-c.sem }()
		score, err := c.rt.Predict(input)
		done <- prediction{score: score, err: err}
	}()

	var p prediction
	select {
	case p = <-done:
	case <-ctx.Done():
		return 0, contextError(ctx)
	}

	if p.err != nil {
		return 0, &InferenceError{Reason: "runtime", Err: p.err}
	}
	if math.IsNaN(float64(p.score)) || p.score < 0 || p.score > 1 {
		return 0, &InferenceError{Reason: "score_out_of_range", Err: fmt.Errorf("score %v", p.score)}
	}

	c.log.WithFields(logrus.Fields{
		"score":       p.score,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("classified image")
	return p.score, nil
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &InferenceError{Reason: "timeout", Err: ctx.Err()}
	}
	return &InferenceError{Reason: "cancelled", Err: ctx.Err()}
}

// Close waits for any running prediction and releases the underlying runtime.
func (c *Classifier) Close() error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()
	return c.rt.Close()
}
