package storage

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is an exponential-backoff wrapper for remote backend calls.
// Base/Max/Factor mirror the AWS SDK v2 default retryer's shape. Only the
// s3 backend's OpenRead runs through it; every other backend call is made
// once, without retry.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
	Factor      float64
}

// DefaultRetryPolicy is the policy the s3, azureblob and oci backends are
// constructed with.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Base:        200 * time.Millisecond,
	Max:         10 * time.Second,
	Factor:      2.0,
}

// Do runs fn, retrying while classify(err) reports true, up to
// MaxAttempts, with full-jitter exponential backoff between attempts.
func (p RetryPolicy) Do(ctx context.Context, classify RetryClassifier, fn func() error) error {
	var err error
	delay := p.Base
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !classify(err) || attempt == p.MaxAttempts {
			return err
		}
		jittered := time.Duration(rand.Int63n(int64(delay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}
		delay = time.Duration(float64(delay) * p.Factor)
		if delay > p.Max {
			delay = p.Max
		}
	}
	return err
}
