package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	predictFunc func(input []float32) (float32, error)
	closed      bool
}

func (f *fakeRuntime) Predict(input []float32) (float32, error) { return f.predictFunc(input) }
func (f *fakeRuntime) Close() error                               { f.closed = true; return nil }

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestPreprocess_ShapeAndScale(t *testing.T) {
	raw := encodePNG(t, uniform(40, 25, color.NRGBA{R: 255, G: 0, B: 51, A: 255}))

	input, err := Preprocess(raw)
	require.NoError(t, err)
	require.Len(t, input, InputLen)

	for i := 0; i < len(input); i += Channels {
		assert.InDelta(t, 1.0, input[i], 0.01)
		assert.InDelta(t, 0.0, input[i+1], 0.01)
		assert.InDelta(t, 0.2, input[i+2], 0.01)
	}
}

func TestPreprocess_DropsAlpha(t *testing.T) {
	raw := encodePNG(t, uniform(8, 8, color.NRGBA{R: 10, G: 200, B: 30, A: 0}))

	input, err := Preprocess(raw)
	require.NoError(t, err)

	assert.InDelta(t, 10.0/255, input[0], 0.01)
	assert.InDelta(t, 200.0/255, input[1], 0.01)
	assert.InDelta(t, 30.0/255, input[2], 0.01)
}

func TestPreprocess_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, uniform(300, 200, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), nil))

	input, err := Preprocess(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, input, InputLen)
	for _, v := range input {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestPreprocess_NotAnImage(t *testing.T) {
	_, err := Preprocess([]byte("definitely not pixels"))

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestClassifier_Classify(t *testing.T) {
	raw := encodePNG(t, uniform(16, 16, color.NRGBA{R: 90, G: 30, B: 140, A: 255}))

	testCases := []struct {
		name       string
		predict    func([]float32) (float32, error)
		wantScore  float32
		wantReason string
	}{
		{"positive", func([]float32) (float32, error) { return 0.96, nil }, 0.96, ""},
		{"negative", func([]float32) (float32, error) { return 0.2, nil }, 0.2, ""},
		{"bounds inclusive", func([]float32) (float32, error) { return 1, nil }, 1, ""},
		{"runtime error", func([]float32) (float32, error) { return 0, errors.New("invoke failed") }, 0, "runtime"},
		{"nan", func([]float32) (float32, error) { return float32(math.NaN()), nil }, 0, "score_out_of_range"},
		{"above one", func([]float32) (float32, error) { return 1.5, nil }, 0, "score_out_of_range"},
		{"negative score", func([]float32) (float32, error) { return -0.1, nil }, 0, "score_out_of_range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(&fakeRuntime{predictFunc: tc.predict}, time.Second, testLogger())

			score, err := c.Classify(context.Background(), raw)
			if tc.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.wantScore, score)
				return
			}
			var infErr *InferenceError
			require.True(t, errors.As(err, &infErr), "got %v", err)
			assert.Equal(t, tc.wantReason, infErr.Reason)
		})
	}
}

func TestClassifier_PassesPreprocessedInput(t *testing.T) {
	raw := encodePNG(t, uniform(16, 16, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))

	var got []float32
	c := NewClassifier(&fakeRuntime{predictFunc: func(in []float32) (float32, error) {
		got = in
		return 0.5, nil
	}}, time.Second, testLogger())

	_, err := c.Classify(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, got, InputLen)
	assert.InDelta(t, 1.0, got[0], 0.01)
}

func TestClassifier_DecodeErrorSkipsRuntime(t *testing.T) {
	called := false
	c := NewClassifier(&fakeRuntime{predictFunc: func([]float32) (float32, error) {
		called = true
		return 0.5, nil
	}}, time.Second, testLogger())

	_, err := c.Classify(context.Background(), []byte("garbage"))

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.False(t, called)
}

func TestClassifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := NewClassifier(&fakeRuntime{predictFunc: func([]float32) (float32, error) {
		<-release
		return 0.9, nil
	}}, 20*time.Millisecond, testLogger())

	_, err := c.Classify(context.Background(), encodePNG(t, uniform(4, 4, color.NRGBA{A: 255})))

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.Equal(t, "timeout", infErr.Reason)
}

func TestClassifier_SerializesPredict(t *testing.T) {
	var inFlight, maxInFlight int32
	c := NewClassifier(&fakeRuntime{predictFunc: func([]float32) (float32, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0.7, nil
	}}, 5*time.Second, testLogger())

	raw := encodePNG(t, uniform(8, 8, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Classify(context.Background(), raw)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestClassifier_TimedOutCallersNeverReachRuntime(t *testing.T) {
	release := make(chan struct{})
	var invocations int32
	c := NewClassifier(&fakeRuntime{predictFunc: func([]float32) (float32, error) {
		atomic.AddInt32(&invocations, 1)
		<-release
		return 0.8, nil
	}}, 30*time.Millisecond, testLogger())

	raw := encodePNG(t, uniform(8, 8, color.NRGBA{R: 5, G: 6, B: 7, A: 255}))
	var wg sync.WaitGroup
	var timeouts int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Classify(context.Background(), raw)
			var infErr *InferenceError
			if errors.As(err, &infErr) && infErr.Reason == "timeout" {
				atomic.AddInt32(&timeouts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(6), atomic.LoadInt32(&timeouts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&invocations))

	close(release)
	score, err := c.Classify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, float32(0.8), score)
	assert.Equal(t, int32(2), atomic.LoadInt32(&invocations))
}

func TestClassifier_CancelledContextSkipsRuntime(t *testing.T) {
	called := false
	c := NewClassifier(&fakeRuntime{predictFunc: func([]float32) (float32, error) {
		called = true
		return 0.5, nil
	}}, time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Classify(ctx, encodePNG(t, uniform(4, 4, color.NRGBA{A: 255})))

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.Equal(t, "cancelled", infErr.Reason)
	assert.False(t, called)
}

func TestClassifier_Close(t *testing.T) {
	rt := &fakeRuntime{}
	require.NoError(t, NewClassifier(rt, 0, testLogger()).Close())
	assert.True(t, rt.closed)
}
