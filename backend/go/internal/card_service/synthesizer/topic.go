package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"Synapse/backend/go/internal/llm"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"
	"Synapse/backend/go/pkg/util"
)

const maxTopicWords = 3

var topicPrefix = regexp.MustCompile(`(?i)^\s*\**\s*topic(?:\s+name)?\s*:\s*`)

// TopicNamer produces short cluster labels from tag sets. Names are cached by
// the normalized tag set, so re-clustering unchanged groups costs no calls.
type TopicNamer struct {
	gen      llm.Generator
	fallback string
	cache    *util.LRUCache[string, string]
	log      *logger.Logger
}

// NewTopicNamer creates a namer. fallback is returned for empty tag sets.
// A cacheSize of 0 disables caching.
func NewTopicNamer(gen llm.Generator, fallback string, cacheSize int, log *logger.Logger) (*TopicNamer, error) {
	n := &TopicNamer{gen: gen, fallback: fallback, log: log}
	if cacheSize > 0 {
		c, err := util.NewWithConfig(util.CacheConfig[string, string]{Capacity: cacheSize})
		if err != nil {
			return nil, err
		}
		n.cache = c
	}
	return n, nil
}

// NameTopic returns a 2-3 word label for the union of a cluster's tags. With no
// tags it returns the fallback without calling the model.
func (n *TopicNamer) NameTopic(ctx context.Context, tags []string) (string, error) {
	key, list := tagSetKey(tags)
	if key == "" {
		return n.fallback, nil
	}
	if n.cache != nil {
		if name, ok := n.cache.Get(key); ok {
			return name, nil
		}
	}

	out, err := n.gen.Generate(ctx, fmt.Sprintf(topicPrompt, strings.Join(list, ", ")))
	if err != nil {
		return "", stage(err, "topic")
	}
	name := CleanTopic(out)
	if name == "" {
		return "", models.NewPipelineError(models.KindGenerationFailed, "topic", errors.New("model returned no topic name"))
	}
	if n.cache != nil {
		n.cache.Put(key, name, 1)
	}
	n.log.WithPayload(map[string]interface{}{"tags": len(list), "topic": name}).Debug("topic named")
	return name, nil
}

// CleanTopic strips labels and emphasis and keeps at most three words.
func CleanTopic(raw string) string {
	name := CleanTitle(topicPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
	words := strings.Fields(name)
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
	}
	return strings.Join(words, " ")
}

// tagSetKey deduplicates tags case-insensitively and returns them sorted along
// with a cache key derived from the sorted list.
func tagSetKey(tags []string) (string, []string) {
	seen := make(map[string]struct{}, len(tags))
	list := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i]) < strings.ToLower(list[j])
	})
	keys := make([]string, len(list))
	for i, t := range list {
		keys[i] = strings.ToLower(t)
	}
	return strings.Join(keys, "\x1f"), list
}
