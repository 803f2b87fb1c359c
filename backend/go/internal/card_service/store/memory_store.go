package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Synapse/backend/go/internal/models"
)

// MemoryCardStore keeps cards in process memory. It backs local runs without
// MongoDB and the package tests of its callers.
type MemoryCardStore struct {
	mu    sync.RWMutex
	cards map[string]*models.KnowledgeCard
}

// NewMemoryCardStore creates an empty MemoryCardStore.
func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{cards: make(map[string]*models.KnowledgeCard)}
}

func (s *MemoryCardStore) Insert(ctx context.Context, card *models.KnowledgeCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCard, card.ID)
	}
	s.cards[card.ID] = cloneCard(card)
	return nil
}

func (s *MemoryCardStore) GetByID(ctx context.Context, id string) (*models.KnowledgeCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneCard(c), nil
}

func (s *MemoryCardStore) ListByOwner(ctx context.Context, userID string) ([]*models.KnowledgeCard, error) {
	return s.list(func(c *models.KnowledgeCard) bool { return c.UserID == userID }), nil
}

func (s *MemoryCardStore) ListPage(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error) {
	all := s.list(func(c *models.KnowledgeCard) bool { return c.UserID == userID && !c.Archive })
	if skip >= len(all) {
		return []*models.KnowledgeCard{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	for _, c := range all {
		c.EmbeddedVector = nil
	}
	return all, nil
}

func (s *MemoryCardStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *MemoryCardStore) UpdateQnA(ctx context.Context, id string, qna []models.QnAPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return models.ErrNotFound
	}
	c.QnA = append([]models.QnAPair(nil), qna...)
	return nil
}

// list returns copies of matching cards, newest first with ties broken by id.
func (s *MemoryCardStore) list(keep func(*models.KnowledgeCard) bool) []*models.KnowledgeCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.KnowledgeCard{}
	for _, c := range s.cards {
		if keep(c) {
			out = append(out, cloneCard(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneCard(c *models.KnowledgeCard) *models.KnowledgeCard {
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	cp.Category = append([]string(nil), c.Category...)
	cp.EmbeddedVector = append([]float32(nil), c.EmbeddedVector...)
	cp.QnA = append([]models.QnAPair(nil), c.QnA...)
	return &cp
}
