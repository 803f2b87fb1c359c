package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(t *testing.T, text string, maxLen int) string {
	t.Helper()
	var sb strings.Builder
	for i, c := range Split(text, maxLen) {
		assert.Equal(t, i, c.Index)
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split("", 10))
}

func TestSplit_ShortInputIsSingleChunk(t *testing.T) {
	chunks := Split("hello", 6000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Text)
}

func TestSplit_ExactBoundaries(t *testing.T) {
	text := strings.Repeat("a", 13000)
	chunks := Split(text, 6000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 6000)
	assert.Len(t, chunks[1].Text, 6000)
	assert.Len(t, chunks[2].Text, 1000)
}

func TestSplit_ExactMultipleHasNoEmptyTail(t *testing.T) {
	chunks := Split(strings.Repeat("b", 12), 4)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Len(t, c.Text, 4)
	}
}

func TestSplit_Properties(t *testing.T) {
	inputs := []string{
		"x",
		strings.Repeat("lorem ipsum ", 1000),
		strings.Repeat("日本語のテキスト", 97),
		"emoji 🙂🙃 mixed with ascii " + strings.Repeat("🙂", 33),
	}
	for _, text := range inputs {
		for _, maxLen := range []int{1, 3, 7, 100, 6000} {
			assert.Equal(t, text, join(t, text, maxLen))

			chunks := Split(text, maxLen)
			for i, c := range chunks {
				n := utf8.RuneCountInString(c.Text)
				assert.LessOrEqual(t, n, maxLen)
				if i < len(chunks)-1 {
					assert.Equal(t, maxLen, n)
				}
				assert.True(t, utf8.ValidString(c.Text))
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("abc", 5000)
	assert.Equal(t, Split(text, 6000), Split(text, 6000))
}

func TestSplit_DefaultLimit(t *testing.T) {
	chunks := Split(strings.Repeat("z", DefaultMaxLen+1), 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[1].Text, 1)
}
