package mic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	frames  [][]byte
	closed  bool
	openErr error
}

func (d *fakeDevice) Open(ctx context.Context, sampleRate, channels, frameSamples int) (<-chan []byte, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	out := make(chan []byte, len(d.frames))
	for _, f := range d.frames {
		out <- f
	}
	close(out)
	return out, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func TestSource_NilDeviceIsUnavailable(t *testing.T) {
	src := New(nil, Config{})
	assert.False(t, src.IsAvailable())
	assert.Error(t, src.StartListening(context.Background()))
}

func TestSource_EmitsCapturedFrames(t *testing.T) {
	dev := &fakeDevice{frames: [][]byte{make([]byte, 640), make([]byte, 640)}}
	src := New(dev, Config{SampleRate: 16000, Channels: 1, FrameSamples: 320})
	assert.True(t, src.IsAvailable())

	ctx := context.Background()
	require.NoError(t, src.StartListening(ctx))
	items, err := src.Listen(ctx)
	require.NoError(t, err)

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case d := <-items:
			require.NotNil(t, d.Audio)
			assert.Equal(t, 16000, d.Audio.SampleRate)
			count++
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	assert.Equal(t, 2, count)

	require.NoError(t, src.StopListening())
	assert.True(t, dev.closed)
}
