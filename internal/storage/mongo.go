package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"scrapbook/internal/domain"
)

const defaultMongoDatabase = "scrapbook"

// MongoStore keeps one document per page with a unique (user_id, collection_slug) index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type pageDoc struct {
	UserID    string            `bson:"user_id"`
	Slug      string            `bson:"collection_slug"`
	Blocks    domain.Collection `bson:"blocks"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// buildMongoURI uses cfg.DSN when it is already a connection string and
// falls back to host/port credentials otherwise.
func buildMongoURI(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.User, cfg.Password, cfg.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = defaultMongoDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(pagesTable)
	_, err = coll.Indexes().CreateOne(pingCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "collection_slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create page index: %w", err)
	}

	return &MongoStore{client: client, coll: coll, now: func() time.Time { return time.Now().UTC() }}, nil
}

func keyFilter(key domain.PageKey) bson.D {
	return bson.D{{Key: "user_id", Value: key.UserID}, {Key: "collection_slug", Value: key.Slug}}
}

func (m *MongoStore) Get(ctx context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	var doc pageDoc
	err := m.coll.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get page: %w", err)
	}
	if doc.Blocks == nil {
		doc.Blocks = domain.Collection{}
	}
	return doc.Blocks, true, nil
}

// Upsert updates the document for key, inserting it when none matches. An
// insert that loses a race against another session surfaces as domain.ErrConflict.
func (m *MongoStore) Upsert(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	res, err := m.coll.UpdateOne(ctx, keyFilter(key), m.setBlocks(blocks))
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return m.insert(ctx, key, blocks)
}

func (m *MongoStore) insert(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	if blocks == nil {
		blocks = domain.Collection{}
	}
	_, err := m.coll.InsertOne(ctx, pageDoc{UserID: key.UserID, Slug: key.Slug, Blocks: blocks, UpdatedAt: m.now()})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert page: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (m *MongoStore) Update(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	res, err := m.coll.UpdateOne(ctx, keyFilter(key), m.setBlocks(blocks))
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (m *MongoStore) List(ctx context.Context, userID string) ([]domain.PageSummary, error) {
	cur, err := m.coll.Find(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var docs []pageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	pages := make([]domain.PageSummary, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, domain.PageSummary{Slug: d.Slug, Blocks: len(d.Blocks), UpdatedAt: d.UpdatedAt.UTC()})
	}
	domain.SortSummaries(pages)
	return pages, nil
}

func (m *MongoStore) Delete(ctx context.Context, key domain.PageKey) error {
	res, err := m.coll.DeleteOne(ctx, keyFilter(key))
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (m *MongoStore) setBlocks(blocks domain.Collection) bson.D {
	if blocks == nil {
		blocks = domain.Collection{}
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "blocks", Value: blocks},
		{Key: "updated_at", Value: m.now()},
	}}}
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
