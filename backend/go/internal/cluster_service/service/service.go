// Package service recomputes a user's topic clusters from their card embeddings.
package service

import (
	"context"
	"fmt"
	"time"

	"Synapse/backend/go/internal/cluster_service/engine"
	"Synapse/backend/go/internal/cluster_service/lock"
	"Synapse/backend/go/internal/cluster_service/store"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CardLister reads every card of a user.
type CardLister interface {
	ListByOwner(ctx context.Context, userID string) ([]*models.KnowledgeCard, error)
}

// TopicNamer labels a cluster from the union of its members' tags.
type TopicNamer interface {
	NameTopic(ctx context.Context, tags []string) (string, error)
}

// Params are the clustering knobs.
type Params struct {
	Eps           float64
	MinSamples    int
	MiscTopicName string
}

// ClusterService runs reclustering. Runs for one user are serialized by the
// locker; concurrent requests for the same user share one run.
type ClusterService struct {
	cards    CardLister
	clusters store.ClusterStore
	namer    TopicNamer
	locker   lock.Locker
	params   Params
	logger   *logger.Logger

	group singleflight.Group
	newID func() string
}

// NewClusterService creates a new ClusterService.
func NewClusterService(cards CardLister, clusters store.ClusterStore, namer TopicNamer, locker lock.Locker, params Params, logger *logger.Logger) *ClusterService {
	if params.MinSamples <= 0 {
		params.MinSamples = 3
	}
	if params.Eps <= 0 {
		params.Eps = 0.2
	}
	if params.MiscTopicName == "" {
		params.MiscTopicName = "Miscellaneous"
	}
	return &ClusterService{
		cards:    cards,
		clusters: clusters,
		namer:    namer,
		locker:   locker,
		params:   params,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// ListClusters returns the user's current clusters.
func (s *ClusterService) ListClusters(ctx context.Context, userID string) ([]*models.Cluster, error) {
	clusters, err := s.clusters.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.WithErr(err).WithUser(userID).Error("Failed to list clusters")
		return nil, err
	}
	return clusters, nil
}

// Recluster replaces the user's cluster set with a fresh DBSCAN partition of
// their clustering-eligible cards. With fewer than MinSamples eligible cards
// it returns InsufficientData and leaves the stored clusters untouched.
func (s *ClusterService) Recluster(ctx context.Context, userID string) (*models.ReclusterOutcome, error) {
	v, err, shared := s.group.Do(userID, func() (interface{}, error) {
		return s.recluster(ctx, userID)
	})
	if shared {
		s.logger.WithUser(userID).Debug("Joined in-flight recluster")
	}
	if err != nil {
		return nil, err
	}
	out := *v.(*models.ReclusterOutcome)
	return &out, nil
}

func (s *ClusterService) recluster(ctx context.Context, userID string) (out *models.ReclusterOutcome, err error) {
	log := s.logger.WithUser(userID)
	start := time.Now()

	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		log.WithErr(err).Warn("Could not acquire recluster lock")
		return nil, err
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Recluster panicked")
			out = nil
			err = models.NewPipelineError(models.KindDistanceComputation, "recluster", fmt.Errorf("panic: %v", r))
		}
	}()

	// 1. Load and keep only cards with an embedding.
	cards, err := s.cards.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	eligible := make([]*models.KnowledgeCard, 0, len(cards))
	for _, c := range cards {
		if c.Clusterable() {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) < s.params.MinSamples {
		log.WithPayload(map[string]interface{}{"cards": len(cards), "eligible": len(eligible)}).Info("Not enough cards to recluster")
		return &models.ReclusterOutcome{Status: models.ReclusterInsufficientData, Eligible: len(eligible)}, nil
	}

	// 2. Distance matrix and partition.
	vectors := make([][]float32, len(eligible))
	for i, c := range eligible {
		vectors[i] = c.EmbeddedVector
	}
	dist, err := engine.CosineDistanceMatrix(vectors)
	if err != nil {
		return nil, models.NewPipelineError(models.KindDistanceComputation, "distance", err)
	}
	labels := engine.DBSCAN(dist, s.params.Eps, s.params.MinSamples)
	groups, noise := engine.Groups(labels)

	// 3. Build the new cluster set; nothing is written until every name is known.
	next := make([]*models.Cluster, 0, len(groups)+1)
	for _, members := range groups {
		name, err := s.namer.NameTopic(ctx, unionTags(eligible, members))
		if err != nil {
			log.WithErr(err).Warn("Topic naming failed; keeping previous clusters")
			return nil, err
		}
		next = append(next, s.newCluster(userID, name, eligible, vectors, members))
	}
	if len(noise) >= s.params.MinSamples {
		next = append(next, s.newCluster(userID, s.params.MiscTopicName, eligible, vectors, noise))
	}

	// 4. Replace: insert the new set, then drop everything else of this user.
	if err := s.clusters.InsertMany(ctx, next); err != nil {
		log.WithErr(err).Error("Failed to insert new clusters; previous clusters kept")
		return nil, fmt.Errorf("insert clusters: %w", err)
	}
	keep := make([]string, len(next))
	for i, c := range next {
		keep[i] = c.ID
	}
	removed, err := s.clusters.DeleteByOwnerExcept(ctx, userID, keep)
	if err != nil {
		log.WithErr(err).WithPayload(map[string]interface{}{"new_cluster_ids": keep}).
			Critical("Old clusters not removed after inserting new ones; user has overlapping cluster sets until the next run")
		return nil, fmt.Errorf("delete previous clusters: %w", err)
	}

	log.WithPayload(map[string]interface{}{
		"eligible":    len(eligible),
		"clusters":    len(next),
		"noise":       len(noise),
		"removed":     removed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Recluster complete")
	return &models.ReclusterOutcome{Status: models.ReclusterRecomputed, ClusterCount: len(next), Eligible: len(eligible)}, nil
}

func (s *ClusterService) newCluster(userID, name string, cards []*models.KnowledgeCard, vectors [][]float32, members []int) *models.Cluster {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = cards[m].ID
	}
	return &models.Cluster{
		ID:               s.newID(),
		UserID:           userID,
		CentroidVector:   engine.Centroid(vectors, members),
		KnowledgeCardIDs: ids,
		TopicName:        name,
	}
}

func unionTags(cards []*models.KnowledgeCard, members []int) []string {
	var tags []string
	for _, m := range members {
		tags = append(tags, cards[m].Tags...)
	}
	return tags
}
