package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Synapse/backend/go/internal/models"
)

// MemoryClusterStore keeps clusters in process memory.
type MemoryClusterStore struct {
	mu       sync.RWMutex
	clusters map[string]*models.Cluster

	// FailInsert and FailDelete inject errors in tests of callers.
	FailInsert error
	FailDelete error
}

// NewMemoryClusterStore creates an empty MemoryClusterStore.
func NewMemoryClusterStore() *MemoryClusterStore {
	return &MemoryClusterStore{clusters: make(map[string]*models.Cluster)}
}

func (s *MemoryClusterStore) InsertMany(ctx context.Context, clusters []*models.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	for _, c := range clusters {
		if _, ok := s.clusters[c.ID]; ok {
			return fmt.Errorf("duplicate cluster id %s", c.ID)
		}
	}
	for _, c := range clusters {
		s.clusters[c.ID] = cloneCluster(c)
	}
	return nil
}

func (s *MemoryClusterStore) DeleteByOwnerExcept(ctx context.Context, userID string, keep []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return 0, s.FailDelete
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var n int64
	for id, c := range s.clusters {
		if c.UserID != userID {
			continue
		}
		if _, ok := kept[id]; ok {
			continue
		}
		delete(s.clusters, id)
		n++
	}
	return n, nil
}

func (s *MemoryClusterStore) DeleteAllByOwner(ctx context.Context, userID string) (int64, error) {
	return s.DeleteByOwnerExcept(ctx, userID, nil)
}

func (s *MemoryClusterStore) ListByOwner(ctx context.Context, userID string) ([]*models.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Cluster{}
	for _, c := range s.clusters {
		if c.UserID == userID {
			out = append(out, cloneCluster(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TopicName != out[j].TopicName {
			return out[i].TopicName < out[j].TopicName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneCluster(c *models.Cluster) *models.Cluster {
	cp := *c
	cp.CentroidVector = append([]float32(nil), c.CentroidVector...)
	cp.KnowledgeCardIDs = append([]string(nil), c.KnowledgeCardIDs...)
	return &cp
}
