package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_EmitsOneItemPerLine(t *testing.T) {
	src := New(strings.NewReader("hello\nworld\n"))
	assert.True(t, src.IsAvailable())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.StartListening(ctx))

	items, err := src.Listen(ctx)
	require.NoError(t, err)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case d := <-items:
			got = append(got, d.Text)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	assert.Equal(t, []string{"hello", "world"}, got)
}

func TestSource_ClosesChannelOnEOF(t *testing.T) {
	src := New(strings.NewReader("only\n"))
	ctx := context.Background()
	require.NoError(t, src.StartListening(ctx))
	items, err := src.Listen(ctx)
	require.NoError(t, err)

	<-items // "only"
	select {
	case _, ok := <-items:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSource_StopListeningTogglesState(t *testing.T) {
	src := New(strings.NewReader(""))
	ctx := context.Background()
	require.NoError(t, src.StartListening(ctx))
	assert.True(t, src.IsListening())
	require.NoError(t, src.StopListening())
	assert.False(t, src.IsListening())
}
