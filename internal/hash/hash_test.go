package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumIsDeterministic(t *testing.T) {
	data := []byte("the same bytes every time")
	first, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	second, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSumMatchesSHA256(t *testing.T) {
	data := []byte("known content")
	want := sha256.Sum256(data)
	got, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, 64)
}

func TestSumDiffersOnSingleByteMutation(t *testing.T) {
	data := []byte("a document that is about to change")
	original, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)

	mutated := append([]byte(nil), data...)
	mutated[0] ^= 0x01
	changed, err := Sum(bytes.NewReader(mutated))
	require.NoError(t, err)
	assert.NotEqual(t, original, changed)
}

func TestSumStreamsLargeInput(t *testing.T) {
	// Larger than one read block to exercise multiple passes.
	data := strings.Repeat("abcdefgh", 64*1024)
	want := sha256.Sum256([]byte(data))
	got, err := Sum(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }

func TestSumPropagatesReadFailure(t *testing.T) {
	_, err := Sum(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk error")
}
