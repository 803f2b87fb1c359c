package store

import (
	"context"
	"errors"
	"fmt"

	"Synapse/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CardStore defines the interface for knowledge card persistence.
type CardStore interface {
	// Insert writes a new card. It never overwrites an existing one.
	Insert(ctx context.Context, card *models.KnowledgeCard) error
	GetByID(ctx context.Context, id string) (*models.KnowledgeCard, error)
	// ListByOwner returns every card of userID, newest first.
	ListByOwner(ctx context.Context, userID string) ([]*models.KnowledgeCard, error)
	// ListPage returns userID's non-archived cards, newest first.
	ListPage(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error)
	Delete(ctx context.Context, id string) error
	UpdateQnA(ctx context.Context, id string, qna []models.QnAPair) error
}

// ErrDuplicateCard is returned by Insert when the id already exists.
var ErrDuplicateCard = errors.New("card already exists")

// MongoCardStore is an implementation of CardStore using MongoDB.
type MongoCardStore struct {
	collection *mongo.Collection
}

// NewMongoCardStore creates a new MongoCardStore.
func NewMongoCardStore(db *mongo.Database, collectionName string) *MongoCardStore {
	return &MongoCardStore{
		collection: db.Collection(collectionName),
	}
}

// Insert inserts a new card into the database.
func (s *MongoCardStore) Insert(ctx context.Context, card *models.KnowledgeCard) error {
	_, err := s.collection.InsertOne(ctx, card)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateCard, card.ID)
	}
	return err
}

// GetByID retrieves a card by its ID.
func (s *MongoCardStore) GetByID(ctx context.Context, id string) (*models.KnowledgeCard, error) {
	var card models.KnowledgeCard
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ListByOwner retrieves all cards owned by userID.
func (s *MongoCardStore) ListByOwner(ctx context.Context, userID string) ([]*models.KnowledgeCard, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.find(ctx, bson.M{"user_id": userID}, opts)
}

// ListPage retrieves a page of userID's non-archived cards.
func (s *MongoCardStore) ListPage(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	opts.SetSkip(int64(skip))
	opts.SetLimit(int64(limit))
	// the embedding is never sent to clients
	opts.SetProjection(bson.M{"embedded_vector": 0})
	return s.find(ctx, bson.M{"user_id": userID, "archive": false}, opts)
}

func (s *MongoCardStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.KnowledgeCard, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cards := []*models.KnowledgeCard{}
	if err = cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Delete removes a card by its ID.
func (s *MongoCardStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateQnA replaces the stored question/answer pairs of a card.
func (s *MongoCardStore) UpdateQnA(ctx context.Context, id string, qna []models.QnAPair) error {
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"qna": qna}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
