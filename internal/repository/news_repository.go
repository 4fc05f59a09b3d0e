package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
)

// NewsRepository handles document store operations for news documents.
// Documents are keyed by the provider-assigned article ID, so a second
// ingestion of the same article is a no-op and stored sentiment is never
// rewritten.
type NewsRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewNewsRepository creates a new news repository
func NewNewsRepository(client *mongo.Client, database, collection string, logger *zap.Logger) *NewsRepository {
	return &NewsRepository{
		coll:   client.Database(database).Collection(collection),
		logger: logger,
	}
}

// EnsureIndexes creates the indexes the query paths rely on
func (r *NewsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "published_at", Value: -1}}},
		{Keys: bson.D{{Key: "tickers", Value: 1}, {Key: "published_at", Value: -1}}},
	})
	if err != nil {
		r.logger.Error("Failed to create news indexes", zap.Error(err))
		return err
	}
	return nil
}

// QueryRecent retrieves up to limit documents published at or after since,
// newest first. An empty ticker matches documents for any ticker.
func (r *NewsRepository) QueryRecent(
	ctx context.Context,
	ticker string,
	since time.Time,
	limit int,
) ([]model.NewsDocument, error) {
	filter := bson.M{"published_at": bson.M{"$gte": since}}
	if ticker != "" {
		filter["tickers"] = ticker
	}

	return r.find(ctx, filter, limit)
}

// QueryAny retrieves up to limit documents regardless of age, newest first.
// This is the degraded read used when the news provider is down.
func (r *NewsRepository) QueryAny(
	ctx context.Context,
	ticker string,
	limit int,
) ([]model.NewsDocument, error) {
	filter := bson.M{}
	if ticker != "" {
		filter["tickers"] = ticker
	}

	return r.find(ctx, filter, limit)
}

func (r *NewsRepository) find(ctx context.Context, filter bson.M, limit int) ([]model.NewsDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query news documents", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.NewsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode news documents", zap.Error(err))
		return nil, err
	}

	return docs, nil
}

// ExistingIDs reports which of the given document IDs are already stored
func (r *NewsRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		r.logger.Error("Failed to query existing news IDs", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	existing := make(map[string]bool, len(ids))
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		existing[doc.ID] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return existing, nil
}

// InsertNew stores the given documents, skipping any whose ID already
// exists. Returns the number of documents actually inserted.
func (r *NewsRepository) InsertNew(ctx context.Context, docs []model.NewsDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to insert news documents",
			zap.Error(err),
			zap.Int("count", len(docs)))
		return 0, err
	}

	return int(res.UpsertedCount), nil
}
