package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// fakeModel returns scripted replies in order, repeating the last one.
type fakeModel struct {
	mu          sync.Mutex
	replies     []reply
	calls       int
	hadDeadline []bool
	prompts     []string
}

func (f *fakeModel) SourceName() string { return "Fake" }

func (f *fakeModel) GenerateText(ctx context.Context, prompt string, jpegImage []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.hadDeadline = append(f.hadDeadline, ok)
	f.prompts = append(f.prompts, prompt)
	i := f.calls
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	f.calls++
	return f.replies[i].text, f.replies[i].err
}

type sleepRecorder struct {
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func rateLimited() error {
	return fmt.Errorf("%w: 429 RESOURCE_EXHAUSTED", llm.ErrRateLimited)
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestClassifier(model llm.Client, s *sleepRecorder) *Classifier {
	return NewClassifier(model, WithSleep(s.sleep))
}

func TestClassifyMalformedImageSkipsModel(t *testing.T) {
	inputs := [][]byte{nil, []byte("not an image"), {0x89, 'P', 'N', 'G'}, make([]byte, 512)}

	for _, input := range inputs {
		model := &fakeModel{replies: []reply{{text: "pothole"}}}
		s := &sleepRecorder{}

		label := newTestClassifier(model, s).Classify(context.Background(), input)

		assert.Equal(t, LabelUnknown, label)
		assert.Equal(t, 0, model.calls)
		assert.Empty(t, s.waits)
	}
}

func TestClassifyParsesModelText(t *testing.T) {
	testCases := []struct {
		text string
		want Label
	}{
		{"pothole", LabelPothole},
		{"Pothole\n", LabelPothole},
		{"light rain near a POTHOLE", LabelPothole},
		{"garbage", LabelGarbage},
		{"water_leak", LabelWaterLeak},
		{"street_light", LabelStreetLight},
		{"unknown", LabelUnknown},
		{"", LabelUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			model := &fakeModel{replies: []reply{{text: tc.text}}}
			label := newTestClassifier(model, &sleepRecorder{}).Classify(context.Background(), testImage(t))
			assert.Equal(t, tc.want, label)
			assert.Equal(t, 1, model.calls)
			assert.Equal(t, Prompt, model.prompts[0])
		})
	}
}

func TestClassifyRetriesOnceAfterRateLimit(t *testing.T) {
	model := &fakeModel{replies: []reply{{err: rateLimited()}, {text: "garbage"}}}
	s := &sleepRecorder{}

	label := newTestClassifier(model, s).Classify(context.Background(), testImage(t))

	assert.Equal(t, LabelGarbage, label)
	assert.Equal(t, 2, model.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, s.waits)
}

func TestClassifyExhaustsRetries(t *testing.T) {
	for _, maxAttempts := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("max_%d", maxAttempts), func(t *testing.T) {
			model := &fakeModel{replies: []reply{{err: rateLimited()}}}
			s := &sleepRecorder{}
			c := NewClassifier(model,
				WithSleep(s.sleep),
				WithRetryPolicy(RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: 2 * time.Second}))

			label := c.Classify(context.Background(), testImage(t))

			assert.Equal(t, LabelUnknown, label)
			assert.Equal(t, maxAttempts, model.calls)
			require.Len(t, s.waits, maxAttempts-1)
			for i, w := range s.waits {
				assert.Equal(t, (2*time.Second)<<uint(i), w)
			}
		})
	}
}

func TestClassifyDoesNotRetryOtherErrors(t *testing.T) {
	model := &fakeModel{replies: []reply{{err: errors.New("400 INVALID_ARGUMENT")}, {text: "pothole"}}}
	s := &sleepRecorder{}

	label := newTestClassifier(model, s).Classify(context.Background(), testImage(t))

	assert.Equal(t, LabelUnknown, label)
	assert.Equal(t, 1, model.calls)
	assert.Empty(t, s.waits)
}

func TestClassifyStopsWhenBackoffIsCancelled(t *testing.T) {
	model := &fakeModel{replies: []reply{{err: rateLimited()}, {text: "pothole"}}}
	s := &sleepRecorder{err: context.Canceled}

	label := newTestClassifier(model, s).Classify(context.Background(), testImage(t))

	assert.Equal(t, LabelUnknown, label)
	assert.Equal(t, 1, model.calls)
}

func TestClassifyAppliesAttemptTimeout(t *testing.T) {
	model := &fakeModel{replies: []reply{{text: "garbage"}}}
	c := NewClassifier(model, WithAttemptTimeout(time.Second))

	assert.Equal(t, LabelGarbage, c.Classify(context.Background(), testImage(t)))
	assert.Equal(t, []bool{true}, model.hadDeadline)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
