package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Synapse/backend/go/internal/models"

	"github.com/tidwall/gjson"
)

// DefaultQnACount is the number of pairs requested when the caller passes 0.
const DefaultQnACount = 5

// ErrMalformedQnA means the model's answer could not be read as question/answer pairs.
var ErrMalformedQnA = errors.New("malformed q&a response")

// QnA generates study questions for an existing card summary.
func (s *Synthesizer) QnA(ctx context.Context, summary string, count int) ([]models.QnAPair, error) {
	if count <= 0 {
		count = DefaultQnACount
	}
	out, err := s.gen.Generate(ctx, fmt.Sprintf(qnaPrompt, count, summary))
	if err != nil {
		return nil, stage(err, "qna")
	}
	pairs, err := ParseQnA(out)
	if err != nil {
		return nil, models.NewPipelineError(models.KindGenerationFailed, "qna", err)
	}
	if len(pairs) > count {
		pairs = pairs[:count]
	}
	return pairs, nil
}

// ParseQnA reads a JSON array of {question, answer} objects, optionally wrapped
// in a markdown fence or in an object under "qna" or "questions".
func ParseQnA(raw string) ([]models.QnAPair, error) {
	body := stripFence(raw)
	if !gjson.Valid(body) {
		return nil, ErrMalformedQnA
	}
	doc := gjson.Parse(body)
	for _, key := range []string{"qna", "questions"} {
		if doc.IsArray() {
			break
		}
		doc = gjson.Parse(body).Get(key)
	}
	if !doc.IsArray() {
		return nil, ErrMalformedQnA
	}

	var pairs []models.QnAPair
	doc.ForEach(func(_, item gjson.Result) bool {
		q := strings.TrimSpace(item.Get("question").String())
		a := strings.TrimSpace(item.Get("answer").String())
		if q != "" && a != "" {
			pairs = append(pairs, models.QnAPair{Question: q, Answer: a})
		}
		return true
	})
	if len(pairs) == 0 {
		return nil, ErrMalformedQnA
	}
	return pairs, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
