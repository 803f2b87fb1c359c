package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers by matching the start of the prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.answer(prompt)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func defaultAnswers(prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Summarize the following content"):
		body := strings.TrimPrefix(prompt, fmt.Sprintf(chunkSummaryPrompt, ""))
		return "partial(" + body + ")", nil
	case strings.HasPrefix(prompt, "You are provided with a collection"):
		idx := strings.LastIndex(prompt, "in this format:\n\n")
		return "combined[" + prompt[idx+len("in this format:\n\n"):] + "]", nil
	case strings.HasPrefix(prompt, "Generate a concise and engaging title"):
		return "**Title:** Learning Go Concurrency", nil
	case strings.HasPrefix(prompt, "Generate tags"):
		return "Go, concurrency, go, Channels", nil
	case strings.HasPrefix(prompt, "Categorize"):
		return "Tech", nil
	}
	return "", errors.New("unexpected prompt")
}

func chunks(texts ...string) []models.ContentChunk {
	out := make([]models.ContentChunk, len(texts))
	for i, t := range texts {
		out[i] = models.ContentChunk{Index: i, Text: t}
	}
	return out
}

func TestReduce_RegeneratesCombinedAfterEachChunk(t *testing.T) {
	gen := &scriptedGenerator{answer: defaultAnswers}
	s := New(gen, 5, nil, logger.Nop())

	summary, err := s.Reduce(context.Background(), chunks("A", "B", "C"))
	require.NoError(t, err)

	// chunk, combine, chunk, combine, chunk, combine
	require.Equal(t, 6, gen.calls())
	assert.Equal(t, "combined[partial(A)\n\npartial(B)\n\npartial(C)]", summary)
	assert.True(t, strings.HasSuffix(gen.prompts[1], "partial(A)"))
	assert.True(t, strings.HasSuffix(gen.prompts[3], "partial(A)\n\npartial(B)"))
}

func TestReduce_NoChunks(t *testing.T) {
	gen := &scriptedGenerator{answer: defaultAnswers}
	_, err := New(gen, 5, nil, logger.Nop()).Reduce(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
	assert.Zero(t, gen.calls())
}

func TestSynthesize(t *testing.T) {
	gen := &scriptedGenerator{answer: defaultAnswers}
	s := New(gen, 5, nil, logger.Nop())

	out, err := s.Synthesize(context.Background(), chunks("body"))
	require.NoError(t, err)
	assert.Equal(t, "combined[partial(body)]", out.Summary)
	assert.Equal(t, "Learning Go Concurrency", out.Title)
	assert.Equal(t, []string{"Go", "concurrency", "Channels"}, out.Tags)
	assert.Equal(t, "Tech", out.Category)
	assert.Equal(t, 5, gen.calls())
}

func TestSynthesize_FailureAborts(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &scriptedGenerator{answer: func(p string) (string, error) {
		if strings.HasPrefix(p, "Generate tags") {
			return "", models.NewPipelineError(models.KindGenerationFailed, "generate", boom)
		}
		return defaultAnswers(p)
	}}
	s := New(gen, 5, nil, logger.Nop())

	out, err := s.Synthesize(context.Background(), chunks("body"))
	assert.Nil(t, out)
	require.ErrorIs(t, err, models.ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)

	var pe *models.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "tags", pe.Stage)
	// the category call never happens
	assert.Equal(t, 4, gen.calls())
}

func TestSynthesize_PlainErrorBecomesGenerationFailed(t *testing.T) {
	gen := &scriptedGenerator{answer: func(string) (string, error) { return "", errors.New("down") }}
	_, err := New(gen, 5, nil, logger.Nop()).Synthesize(context.Background(), chunks("x"))
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"**Title:** Go Memory Model":                           "Go Memory Model",
		"*Title:* Go Memory Model":                             "Go Memory Model",
		"Title: Go Memory Model":                               "Go Memory Model",
		"\"Go Memory Model\"":                                  "Go Memory Model",
		"**Go Memory Model**":                                  "Go Memory Model",
		"\n\nGo Memory Model\nAlternative: Something":          "Go Memory Model",
		"One Two Three Four Five Six Seven Eight":              "One Two Three Four Five Six",
		"Entitled Thoughts":                                    "Entitled Thoughts",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanTitle(in), in)
	}
}

func TestParseTags(t *testing.T) {
	tags := ParseTags("AI, Machine Learning, ai, Deep Learning , This tag is actually a long sentence about things, NLP, Vision, Robotics", 5)
	assert.Equal(t, []string{"AI", "Machine Learning", "Deep Learning", "NLP", "Vision"}, tags)

	tags = ParseTags("- 3D Printing\n- **Makers**\n1. Open Hardware.\n", 5)
	assert.Equal(t, []string{"3D Printing", "Makers", "Open Hardware"}, tags)

	assert.Equal(t, []string{"Go"}, ParseTags("Go, It is great.", 5))
	assert.Empty(t, ParseTags("  ,  ,", 5))
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "Tech", NormalizeCategory(" Tech\n"))
	assert.Equal(t, "Social Media", NormalizeCategory("**Social Media**"))
	assert.Equal(t, MiscCategory, NormalizeCategory("Technology"))
	assert.Equal(t, MiscCategory, NormalizeCategory("tech"))
	assert.Equal(t, MiscCategory, NormalizeCategory(""))
}

func TestTopicNamer_EmptyTagsUseFallback(t *testing.T) {
	gen := &scriptedGenerator{answer: func(string) (string, error) { return "Should Not Happen", nil }}
	n, err := NewTopicNamer(gen, "Unnamed Topic", 16, logger.Nop())
	require.NoError(t, err)

	name, err := n.NameTopic(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Topic", name)
	assert.Zero(t, gen.calls())
}

func TestTopicNamer_CachesByTagSet(t *testing.T) {
	gen := &scriptedGenerator{answer: func(string) (string, error) { return "Topic: **Cloud Native Infrastructure Ops**", nil }}
	n, err := NewTopicNamer(gen, "Unnamed Topic", 16, logger.Nop())
	require.NoError(t, err)

	name, err := n.NameTopic(context.Background(), []string{"Kubernetes", "Docker", "docker"})
	require.NoError(t, err)
	assert.Equal(t, "Cloud Native Infrastructure", name)
	assert.Contains(t, gen.prompts[0], "Docker, Kubernetes")

	name, err = n.NameTopic(context.Background(), []string{"docker", "KUBERNETES"})
	require.NoError(t, err)
	assert.Equal(t, "Cloud Native Infrastructure", name)
	assert.Equal(t, 1, gen.calls())
}

func TestTopicNamer_ErrorsAreNotCached(t *testing.T) {
	fail := true
	gen := &scriptedGenerator{answer: func(string) (string, error) {
		if fail {
			return "", errors.New("timeout")
		}
		return "Space Exploration", nil
	}}
	n, err := NewTopicNamer(gen, "Unnamed Topic", 16, logger.Nop())
	require.NoError(t, err)

	_, err = n.NameTopic(context.Background(), []string{"NASA"})
	assert.ErrorIs(t, err, models.ErrGenerationFailed)

	fail = false
	name, err := n.NameTopic(context.Background(), []string{"NASA"})
	require.NoError(t, err)
	assert.Equal(t, "Space Exploration", name)
	assert.Equal(t, 2, gen.calls())
}

func TestSynthesizerNameTopic_NotConfigured(t *testing.T) {
	s := New(&scriptedGenerator{answer: defaultAnswers}, 5, nil, logger.Nop())
	_, err := s.NameTopic(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestParseQnA(t *testing.T) {
	pairs, err := ParseQnA("```json\n[{\"question\":\"What is Go?\",\"answer\":\"A language.\"},{\"question\":\"\",\"answer\":\"skip\"}]\n```")
	require.NoError(t, err)
	assert.Equal(t, []models.QnAPair{{Question: "What is Go?", Answer: "A language."}}, pairs)

	pairs, err = ParseQnA(`{"questions":[{"question":"Q","answer":"A"}]}`)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)

	_, err = ParseQnA("Sure! Here are some questions.")
	assert.ErrorIs(t, err, ErrMalformedQnA)

	_, err = ParseQnA(`{"answer":"no list"}`)
	assert.ErrorIs(t, err, ErrMalformedQnA)
}

func TestQnA_TruncatesAndWrapsErrors(t *testing.T) {
	gen := &scriptedGenerator{answer: func(string) (string, error) {
		return `[{"question":"1","answer":"a"},{"question":"2","answer":"b"},{"question":"3","answer":"c"}]`, nil
	}}
	s := New(gen, 5, nil, logger.Nop())
	pairs, err := s.QnA(context.Background(), "summary", 2)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	gen.answer = func(string) (string, error) { return "not json", nil }
	_, err = s.QnA(context.Background(), "summary", 2)
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrMalformedQnA)
}
