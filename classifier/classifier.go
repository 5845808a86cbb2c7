package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/image"
	"github.com/Aditya-GrowAI/civicvoice3/llm"
	"github.com/Aditya-GrowAI/civicvoice3/metrics"

	"github.com/apex/log"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Classifier labels issue photos with an external model.
type Classifier struct {
	model          llm.Client
	policy         RetryPolicy
	attemptTimeout time.Duration
	sleep          SleepFunc
	normalize      func([]byte) ([]byte, error)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRetryPolicy overrides the default rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Classifier) { c.policy = p }
}

// WithAttemptTimeout bounds each model call. Zero means no per-attempt bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.attemptTimeout = d }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(s SleepFunc) Option {
	return func(c *Classifier) { c.sleep = s }
}

// NewClassifier creates a classifier backed by model.
func NewClassifier(model llm.Client, opts ...Option) *Classifier {
	c := &Classifier{
		model:     model,
		policy:    DefaultRetryPolicy(),
		sleep:     sleepContext,
		normalize: image.Normalize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the label for an uploaded photo. It never fails: malformed
// images, exhausted retries and model errors all yield LabelUnknown.
func (c *Classifier) Classify(ctx context.Context, imageData []byte) Label {
	start := time.Now()
	label := c.classify(ctx, imageData)
	metrics.ClassificationDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.ClassificationsTotal.WithLabelValues(string(label)).Inc()
	return label
}

func (c *Classifier) classify(ctx context.Context, imageData []byte) Label {
	jpegImage, err := c.normalize(imageData)
	if err != nil {
		log.Warnf("Classifier could not decode image (%d bytes): %v", len(imageData), err)
		return LabelUnknown
	}

	maxAttempts := c.policy.maxAttempts()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := c.generate(ctx, jpegImage)
		if err == nil {
			metrics.ClassifierAttemptsTotal.WithLabelValues("ok").Inc()
			label := ParseLabel(text)
			log.Infof("%s classified image as %s (attempt %d/%d)", c.model.SourceName(), label, attempt+1, maxAttempts)
			return label
		}

		rateLimited := errors.Is(err, llm.ErrRateLimited)
		if !rateLimited {
			metrics.ClassifierAttemptsTotal.WithLabelValues("error").Inc()
			log.Errorf("%s classification failed: %v", c.model.SourceName(), err)
			return LabelUnknown
		}
		metrics.ClassifierAttemptsTotal.WithLabelValues("rate_limited").Inc()

		decision := c.policy.Decide(attempt, rateLimited)
		if !decision.Retry {
			log.Warnf("Rate limit exceeded after %d attempts", attempt+1)
			return LabelUnknown
		}

		log.Warnf("Rate limit hit. Retrying in %v... (attempt %d/%d)", decision.Wait, attempt+1, maxAttempts)
		if err := c.sleep(ctx, decision.Wait); err != nil {
			log.Warnf("Classification abandoned during backoff: %v", err)
			return LabelUnknown
		}
	}
	return LabelUnknown
}

func (c *Classifier) generate(ctx context.Context, jpegImage []byte) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return c.model.GenerateText(ctx, Prompt, jpegImage)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
