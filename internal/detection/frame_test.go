package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vrplayer/vrprobe/internal/config"
)

func testAnalyzer(metadataTimeout, seekTimeout time.Duration) *Analyzer {
	return NewAnalyzer(&config.DetectionConfig{
		MetadataTimeout: metadataTimeout,
		SeekTimeout:     seekTimeout,
	}, nil)
}

func TestAnalyzerReadyProvider(t *testing.T) {
	p := &fakeProvider{width: 200, height: 100, duration: 10 * time.Second, frame: sbsFrame(200, 100)}

	got := testAnalyzer(time.Second, 0).Analyze(context.Background(), p)

	require.NotNil(t, got)
	assert.Equal(t, FormatSBS, got.Format)
	assert.Equal(t, FOV180, got.FOV)
	assert.Equal(t, 0, p.loads, "metadata already known, no load expected")
	assert.Equal(t, 1, p.seeks)
	assert.Equal(t, 5*time.Second, p.seekedTo)
}

func TestAnalyzerWaitsForMetadata(t *testing.T) {
	p := &fakeProvider{
		duration: 4 * time.Second,
		frame:    tbFrame(200, 100),
		loadFn: func(_ context.Context, p *fakeProvider) error {
			p.setSize(200, 100)
			return nil
		},
	}

	got := testAnalyzer(time.Second, 0).Analyze(context.Background(), p)

	require.NotNil(t, got)
	assert.Equal(t, FormatTB, got.Format)
	assert.Equal(t, 1, p.loads)
	assert.Equal(t, 2*time.Second, p.seekedTo)
}

func TestAnalyzerMetadataTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakeProvider{
		loadFn: func(ctx context.Context, _ *fakeProvider) error { return blockUntilDone(ctx) },
	}
	a := testAnalyzer(50*time.Millisecond, 0)

	start := time.Now()
	got := a.Analyze(context.Background(), p)

	assert.Nil(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err := a.analyze(context.Background(), p)
	assert.ErrorIs(t, err, ErrMetadataTimeout)
	assert.Equal(t, "metadata_timeout", failureReason(err))
}

func TestAnalyzerFailures(t *testing.T) {
	loadErr := errors.New("decoder error")

	tests := []struct {
		name     string
		provider *fakeProvider
		wantErr  error
	}{
		{
			name: "load error",
			provider: &fakeProvider{
				loadFn: func(context.Context, *fakeProvider) error { return loadErr },
			},
			wantErr: ErrLoadFailed,
		},
		{
			name:     "size still unknown after load",
			provider: &fakeProvider{},
			wantErr:  ErrUnknownSize,
		},
		{
			name: "seek error",
			provider: &fakeProvider{
				width: 10, height: 10,
				seekFn: func(context.Context, time.Duration) error { return errors.New("not seekable") },
			},
			wantErr: ErrSeekFailed,
		},
		{
			name:     "read error",
			provider: &fakeProvider{width: 10, height: 10, frameErr: errors.New("no data")},
			wantErr:  ErrNoFrame,
		},
		{
			name:     "nil frame",
			provider: &fakeProvider{width: 10, height: 10},
			wantErr:  ErrNoFrame,
		},
		{
			name: "short buffer",
			provider: &fakeProvider{
				width: 10, height: 10,
				frame: &Frame{Width: 10, Height: 10, Pix: make([]byte, 100)},
			},
			wantErr: ErrShortBuffer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAnalyzer(time.Second, 0)

			_, err := a.analyze(context.Background(), tt.provider)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Nil(t, a.Analyze(context.Background(), tt.provider))
		})
	}
}

func TestAnalyzerLoadErrorKeepsCause(t *testing.T) {
	cause := errors.New("codec not supported")
	p := &fakeProvider{loadFn: func(context.Context, *fakeProvider) error { return cause }}

	_, err := testAnalyzer(time.Second, 0).analyze(context.Background(), p)

	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, cause)
}

func TestAnalyzerSeekTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakeProvider{
		width: 10, height: 10,
		seekFn: func(ctx context.Context, _ time.Duration) error { return blockUntilDone(ctx) },
	}

	_, err := testAnalyzer(time.Second, 50*time.Millisecond).analyze(context.Background(), p)
	assert.ErrorIs(t, err, ErrSeekFailed)
}

func TestAnalyzerCallerCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakeProvider{
		width: 10, height: 10,
		seekFn: func(ctx context.Context, _ time.Duration) error { return blockUntilDone(ctx) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testAnalyzer(time.Second, 0).analyze(ctx, p)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "canceled", failureReason(err))
}

func TestAnalyzerRecoversProviderPanic(t *testing.T) {
	a := testAnalyzer(time.Second, 0)

	assert.NotPanics(t, func() {
		assert.Nil(t, a.Analyze(context.Background(), panicProvider{}))
	})

	_, err := a.analyze(context.Background(), panicProvider{})
	assert.ErrorIs(t, err, ErrProviderPanic)
}

func TestAnalyzerNilProvider(t *testing.T) {
	assert.Nil(t, testAnalyzer(time.Second, 0).Analyze(context.Background(), nil))
}

func TestNewAnalyzerDefaults(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	assert.Equal(t, DefaultMetadataTimeout, a.metadataTimeout)
	assert.Zero(t, a.seekTimeout)
	assert.NotNil(t, a.logger)
}
