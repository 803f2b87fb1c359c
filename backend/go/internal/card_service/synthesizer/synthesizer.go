// Package synthesizer turns chunked source text into the narrative parts of a
// knowledge card: a structured summary, a title, tags and a category.
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"Synapse/backend/go/internal/llm"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"
)

// MiscCategory is stored when the model answers outside the vocabulary.
const MiscCategory = "Misc"

const maxTitleWords = 6

// Categories is the closed category vocabulary.
var Categories = []string{
	"Tech", "Science", "Health", "Business", "Politics",
	"Entertainment", "Sports", "Education", "Travel", "Food",
	"Lifestyle", "Fashion", "Music", "Movies", "Gaming",
	"News", "Environment", "Social Media", "Finance", "Art",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// ErrNoChunks is wrapped into GenerationFailed when there is nothing to summarize.
var ErrNoChunks = errors.New("no content chunks")

var listMarker = regexp.MustCompile(`^\s*(?:[-•*#]+|\d+[.)])\s*`)

var titlePrefix = regexp.MustCompile(`(?i)^\s*\**\s*title\s*:\s*\**\s*`)

// Synthesis is the narrative output for one card.
type Synthesis struct {
	Summary  string // markdown
	Title    string
	Tags     []string
	Category string
}

// Synthesizer drives the generation calls. It holds no per-card state and can
// be shared between requests.
type Synthesizer struct {
	gen     llm.Generator
	maxTags int
	topics  *TopicNamer
	log     *logger.Logger
}

// New creates a Synthesizer. topics may be nil if topic naming is not needed.
func New(gen llm.Generator, maxTags int, topics *TopicNamer, log *logger.Logger) *Synthesizer {
	if maxTags <= 0 {
		maxTags = 5
	}
	return &Synthesizer{gen: gen, maxTags: maxTags, topics: topics, log: log}
}

// Synthesize reduces the chunks to one structured summary and derives the
// title, tags and category from it. Any failed call aborts with GenerationFailed.
func (s *Synthesizer) Synthesize(ctx context.Context, chunks []models.ContentChunk) (*Synthesis, error) {
	summary, err := s.Reduce(ctx, chunks)
	if err != nil {
		return nil, err
	}
	title, err := s.Title(ctx, summary)
	if err != nil {
		return nil, err
	}
	tags, err := s.Tags(ctx, summary)
	if err != nil {
		return nil, err
	}
	category, err := s.Category(ctx, summary)
	if err != nil {
		return nil, err
	}
	return &Synthesis{Summary: summary, Title: title, Tags: tags, Category: category}, nil
}

// Reduce summarizes each chunk in order and regenerates the combined summary
// after every chunk. The last combined summary is returned.
func (s *Synthesizer) Reduce(ctx context.Context, chunks []models.ContentChunk) (string, error) {
	if len(chunks) == 0 {
		return "", models.NewPipelineError(models.KindGenerationFailed, "summarize", ErrNoChunks)
	}

	partials := make([]string, 0, len(chunks))
	var combined string
	for _, chunk := range chunks {
		part, err := s.gen.Generate(ctx, fmt.Sprintf(chunkSummaryPrompt, chunk.Text))
		if err != nil {
			return "", stage(err, "summarize chunk")
		}
		partials = append(partials, part)

		combined, err = s.gen.Generate(ctx, fmt.Sprintf(combinedSummaryPrompt, strings.Join(partials, "\n\n")))
		if err != nil {
			return "", stage(err, "combine summaries")
		}
		s.log.WithPayload(map[string]interface{}{
			"chunk":    chunk.Index,
			"of":       len(chunks),
			"combined": len(combined),
		}).Debug("chunk reduced")
	}
	return combined, nil
}

// Title asks for a short title and removes any label the model put in front of it.
func (s *Synthesizer) Title(ctx context.Context, summary string) (string, error) {
	out, err := s.gen.Generate(ctx, fmt.Sprintf(titlePrompt, summary))
	if err != nil {
		return "", stage(err, "title")
	}
	title := CleanTitle(out)
	if title == "" {
		return "", models.NewPipelineError(models.KindGenerationFailed, "title", errors.New("model returned no title"))
	}
	return title, nil
}

// Tags asks for a comma-separated tag list and parses it.
func (s *Synthesizer) Tags(ctx context.Context, summary string) ([]string, error) {
	out, err := s.gen.Generate(ctx, fmt.Sprintf(tagsPrompt, summary, s.maxTags))
	if err != nil {
		return nil, stage(err, "tags")
	}
	return ParseTags(out, s.maxTags), nil
}

// Category classifies the summary. Answers outside the vocabulary become MiscCategory.
func (s *Synthesizer) Category(ctx context.Context, summary string) (string, error) {
	out, err := s.gen.Generate(ctx, fmt.Sprintf(categoryPrompt, strings.Join(Categories, ", "), summary))
	if err != nil {
		return "", stage(err, "category")
	}
	return NormalizeCategory(out), nil
}

// NameTopic labels a cluster from its members' tags.
func (s *Synthesizer) NameTopic(ctx context.Context, tags []string) (string, error) {
	if s.topics == nil {
		return "", errors.New("topic naming is not configured")
	}
	return s.topics.NameTopic(ctx, tags)
}

// CleanTitle keeps the first non-empty line, strips a leading "Title:" label
// and surrounding emphasis or quotes, and caps the result at six words.
func CleanTitle(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = titlePrefix.ReplaceAllString(line, "")
	line = strings.Trim(line, "*\"'“”# ")
	words := strings.Fields(line)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Join(words, " ")
}

// ParseTags splits comma or newline separated output into at most max tags,
// deduplicated case-insensitively in first-seen order. Entries that read like
// sentences are dropped.
func ParseTags(raw string, max int) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, max)
	for _, f := range fields {
		tag := listMarker.ReplaceAllString(f, "")
		tag = strings.Trim(tag, "*\"'` ")
		if tag == "" || sentenceLike(tag) {
			continue
		}
		tag = strings.TrimRight(tag, ".")
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == max {
			break
		}
	}
	return tags
}

func sentenceLike(tag string) bool {
	words := len(strings.Fields(tag))
	if words > 5 {
		return true
	}
	return words >= 3 && strings.ContainsAny(tag[len(tag)-1:], ".!?:")
}

// NormalizeCategory trims formatting around the answer and matches it exactly
// against the vocabulary.
func NormalizeCategory(raw string) string {
	c := strings.Trim(strings.TrimSpace(raw), "*\"'.` ")
	if _, ok := categorySet[c]; ok {
		return c
	}
	return MiscCategory
}

// stage relabels a generation failure with the synthesizer step that made it.
func stage(err error, name string) error {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return models.NewPipelineError(pe.Kind, name, pe.Err)
	}
	return models.NewPipelineError(models.KindGenerationFailed, name, err)
}
