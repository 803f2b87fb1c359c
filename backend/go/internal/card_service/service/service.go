// Package service assembles knowledge cards from sources and serves the card
// operations behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Synapse/backend/go/internal/card_service/chunker"
	"Synapse/backend/go/internal/card_service/resolver"
	"Synapse/backend/go/internal/card_service/store"
	"Synapse/backend/go/internal/card_service/synthesizer"
	"Synapse/backend/go/internal/embedding"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// SourceResolver turns a source into plain text.
type SourceResolver interface {
	Resolve(ctx context.Context, src resolver.Source) (*resolver.RawContent, error)
}

// NarrativeSynthesizer produces the generated parts of a card.
type NarrativeSynthesizer interface {
	Synthesize(ctx context.Context, chunks []models.ContentChunk) (*synthesizer.Synthesis, error)
	QnA(ctx context.Context, summary string, count int) ([]models.QnAPair, error)
}

// AssembleRequest is one card creation request.
type AssembleRequest struct {
	UserID string
	Source resolver.Source
	Note   string
}

// CardService provides the card pipeline and the card read/update operations.
type CardService struct {
	resolver  SourceResolver
	synth     NarrativeSynthesizer
	embedder  embedding.Embedding
	cards     store.CardStore
	archive   store.DocumentArchive
	chunkSize int
	logger    *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewCardService creates a new CardService. archive may be nil.
func NewCardService(res SourceResolver, synth NarrativeSynthesizer, embedder embedding.Embedding,
	cards store.CardStore, archive store.DocumentArchive, chunkSize int, logger *logger.Logger) *CardService {
	return &CardService{
		resolver:  res,
		synth:     synth,
		embedder:  embedder,
		cards:     cards,
		archive:   archive,
		chunkSize: chunkSize,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Assemble runs resolve, chunk, synthesize and embed, then inserts exactly one
// new card. Any stage failure aborts before anything is written. A request
// without a source yields an "Untitled" placeholder card and makes no model calls.
func (s *CardService) Assemble(ctx context.Context, req AssembleRequest) (*models.KnowledgeCard, error) {
	log := s.logger.WithUser(req.UserID)
	card := &models.KnowledgeCard{
		ID:           s.newID(),
		UserID:       req.UserID,
		Note:         req.Note,
		CreatedAt:    s.now().UTC(),
		Tags:         []string{},
		Category:     []string{},
		LikedBy:      []string{},
		BookmarkedBy: []string{},
		CopiedBy:     []string{},
	}
	if strings.TrimSpace(card.Note) == "" {
		card.Note = models.DefaultNote
	}

	if req.Source.Empty() {
		card.Title = models.PlaceholderTitle
		card.Thumbnail = Thumbnail(synthesizer.MiscCategory)
		if err := s.cards.Insert(ctx, card); err != nil {
			log.WithErr(err).Error("Failed to insert placeholder card")
			return nil, err
		}
		log.WithField("card_id", card.ID).Info("Placeholder card created")
		return card, nil
	}

	// 1. Resolve the source into plain text.
	raw, err := s.resolver.Resolve(ctx, req.Source)
	if err != nil {
		log.WithErr(err).WithField("source", req.Source.URL).Warn("Source resolution failed")
		return nil, err
	}

	// 2. Split and synthesize.
	chunks := chunker.Split(raw.Text, s.chunkSize)
	syn, err := s.synth.Synthesize(ctx, chunks)
	if err != nil {
		log.WithErr(err).WithField("chunks", len(chunks)).Warn("Synthesis failed")
		return nil, err
	}

	// 3. Embed the title.
	vec, err := s.embedder.Embed(ctx, syn.Title)
	if err != nil {
		log.WithErr(err).Warn("Embedding failed")
		return nil, err
	}
	if len(vec) == 0 {
		vec = nil
		log.WithField("title", syn.Title).Info("Embedding model returned no vector; card will not be clustered")
	}

	html, err := RenderSummary(syn.Summary)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	card.Title = syn.Title
	card.Summary = html
	card.Tags = syn.Tags
	card.Category = []string{syn.Category}
	card.Thumbnail = Thumbnail(syn.Category)
	card.EmbeddedVector = vec
	card.SourceURL = s.sourceRef(ctx, log, req, raw)

	// 4. Persist.
	if err := s.cards.Insert(ctx, card); err != nil {
		log.WithErr(err).Error("Failed to insert card")
		return nil, err
	}
	log.WithPayload(map[string]interface{}{
		"card_id":  card.ID,
		"kind":     raw.Kind,
		"chunks":   len(chunks),
		"category": syn.Category,
	}).Info("Knowledge card created")
	return card, nil
}

// sourceRef is the URL for web and video sources. Uploaded documents are
// archived when an archive is configured; otherwise the filename is kept.
func (s *CardService) sourceRef(ctx context.Context, log *logger.Logger, req AssembleRequest, raw *resolver.RawContent) string {
	if raw.Kind != resolver.KindDocument {
		return raw.Source
	}
	if s.archive == nil {
		return raw.Source
	}
	ref, err := s.archive.Save(ctx, req.UserID, req.Source.Document.Filename, req.Source.Document.Data)
	if err != nil {
		log.WithErr(err).Warn("Failed to archive uploaded document")
		return raw.Source
	}
	return ref
}

// GetCard returns a card owned by userID.
func (s *CardService) GetCard(ctx context.Context, userID, cardID string) (*models.KnowledgeCard, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		s.logger.WithPayload(map[string]interface{}{"card_id": cardID, "requesting_user_id": userID}).Warn("User attempted to access unauthorized card")
		return nil, models.ErrNotFound
	}
	return card, nil
}

// ListCards returns a page of the user's non-archived cards.
func (s *CardService) ListCards(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error) {
	cards, err := s.cards.ListPage(ctx, userID, skip, limit)
	if err != nil {
		s.logger.WithErr(err).WithUser(userID).Error("Failed to list cards")
		return nil, err
	}
	return cards, nil
}

// DeleteCard removes a card owned by userID.
func (s *CardService) DeleteCard(ctx context.Context, userID, cardID string) error {
	if _, err := s.GetCard(ctx, userID, cardID); err != nil {
		return err
	}
	return s.cards.Delete(ctx, cardID)
}

// GenerateQnA creates question/answer pairs from a card's summary and stores them.
func (s *CardService) GenerateQnA(ctx context.Context, userID, cardID string, count int) ([]models.QnAPair, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(card.Summary) == "" {
		return nil, models.NewPipelineError(models.KindGenerationFailed, "qna", errors.New("card has no summary"))
	}
	qna, err := s.synth.QnA(ctx, card.Summary, count)
	if err != nil {
		s.logger.WithErr(err).WithField("card_id", cardID).Warn("Q&A generation failed")
		return nil, err
	}
	if err := s.cards.UpdateQnA(ctx, cardID, qna); err != nil {
		s.logger.WithErr(err).WithField("card_id", cardID).Error("Failed to store Q&A")
		return nil, err
	}
	return qna, nil
}
