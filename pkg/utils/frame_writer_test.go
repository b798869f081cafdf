package utils

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameWriter_Flush(t *testing.T) {
	f := &FrameWriter{}
	_, err := f.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = f.Write([]byte("world"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, f.Flush(&out))
	assert.Equal(t, clearScreen+"hello world", out.String())

	out.Reset()
	require.NoError(t, f.Flush(&out))
	assert.Equal(t, clearScreen, out.String())
}

func TestFrameWriter_Discard(t *testing.T) {
	f := &FrameWriter{}
	_, _ = f.Write([]byte("stale"))
	f.Discard()

	var out bytes.Buffer
	require.NoError(t, f.Flush(&out))
	assert.Equal(t, clearScreen, out.String())
}

func TestFrameWriter_ConcurrentWrites(t *testing.T) {
	f := &FrameWriter{}
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.Write([]byte("x"))
		}()
	}
	wg.Wait()

	var out bytes.Buffer
	require.NoError(t, f.Flush(&out))
	assert.Len(t, out.String(), len(clearScreen)+100)
}
