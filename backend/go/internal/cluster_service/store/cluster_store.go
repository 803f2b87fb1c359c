package store

import (
	"context"

	"Synapse/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClusterStore defines the interface for cluster persistence.
type ClusterStore interface {
	InsertMany(ctx context.Context, clusters []*models.Cluster) error
	// DeleteByOwnerExcept removes the user's clusters whose id is not in keep.
	DeleteByOwnerExcept(ctx context.Context, userID string, keep []string) (int64, error)
	DeleteAllByOwner(ctx context.Context, userID string) (int64, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Cluster, error)
}

// MongoClusterStore is an implementation of ClusterStore using MongoDB.
type MongoClusterStore struct {
	collection *mongo.Collection
}

// NewMongoClusterStore creates a new MongoClusterStore.
func NewMongoClusterStore(db *mongo.Database, collectionName string) *MongoClusterStore {
	return &MongoClusterStore{
		collection: db.Collection(collectionName),
	}
}

// InsertMany inserts all clusters in one ordered batch.
func (s *MongoClusterStore) InsertMany(ctx context.Context, clusters []*models.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	docs := make([]interface{}, len(clusters))
	for i, c := range clusters {
		docs[i] = c
	}
	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// DeleteByOwnerExcept deletes the user's clusters not listed in keep.
func (s *MongoClusterStore) DeleteByOwnerExcept(ctx context.Context, userID string, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := s.collection.DeleteMany(ctx, bson.M{
		"user_id": userID,
		"_id":     bson.M{"$nin": keep},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteAllByOwner deletes every cluster of the user.
func (s *MongoClusterStore) DeleteAllByOwner(ctx context.Context, userID string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByOwner returns the user's clusters sorted by topic name.
func (s *MongoClusterStore) ListByOwner(ctx context.Context, userID string) ([]*models.Cluster, error) {
	opts := options.Find().SetSort(bson.D{{Key: "topic_name", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	clusters := []*models.Cluster{}
	if err = cursor.All(ctx, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}
