package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	content := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 50))

	frame, err := Compress(content)
	require.NoError(t, err)
	require.NotEmpty(t, frame)
	require.Less(t, len(frame), len(content))

	out, err := Decompress(frame)
	require.NoError(t, err)
	require.Equal(t, content, out)
}

func TestEmptyContentRoundTrip(t *testing.T) {
	frame, err := Compress(nil)
	require.NoError(t, err)
	require.Empty(t, frame)

	out, err := Decompress(frame)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDecompressTruncatedFrame(t *testing.T) {
	_, err := Decompress([]byte{1, 2})
	require.Error(t, err)
}
