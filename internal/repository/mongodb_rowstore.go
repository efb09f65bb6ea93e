package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBRowStore implements RowStore using two MongoDB collections: one
// document per sub-table and one document per row. Row order is _id order.
type MongoDBRowStore struct {
	client *mongo.Client
	tables *mongo.Collection
	rows   *mongo.Collection
}

// tableDocument represents a sub-table in MongoDB.
type tableDocument struct {
	Title     string    `bson:"title"`
	TableID   int64     `bson:"table_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// rowDocument represents one row of a sub-table.
type rowDocument struct {
	ID    primitive.ObjectID `bson:"_id"`
	Table string             `bson:"table"`
	Value string             `bson:"value"`
}

// NewMongoDBRowStore connects to MongoDB and prepares the collections.
func NewMongoDBRowStore(uri, database, prefix string) (*MongoDBRowStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := newMongoDBRowStore(client, database, prefix)

	_, err = s.tables.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("[MongoDB] Warning: failed to create table index: %v", err)
	}
	_, err = s.rows.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "table", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		log.Printf("[MongoDB] Warning: failed to create row index: %v", err)
	}

	log.Printf("[MongoDB] Connected to %s/%s_*", database, prefix)
	return s, nil
}

func newMongoDBRowStore(client *mongo.Client, database, prefix string) *MongoDBRowStore {
	db := client.Database(database)
	return &MongoDBRowStore{
		client: client,
		tables: db.Collection(prefix + "_tables"),
		rows:   db.Collection(prefix + "_rows"),
	}
}

// FindTable looks up a sub-table by title.
func (s *MongoDBRowStore) FindTable(ctx context.Context, title string) (Handle, bool, error) {
	var doc tableDocument
	err := s.tables.FindOne(ctx, bson.M{"title": title}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Handle{}, false, nil
	}
	if err != nil {
		return Handle{}, false, fmt.Errorf("failed to find table %s: %w", title, err)
	}
	return Handle{ID: doc.TableID, Title: doc.Title}, true, nil
}

// CreateTable stores the sub-table document and its header row. If the header
// cannot be written the table document is removed again, so a later FindTable
// never sees a table without its header.
func (s *MongoDBRowStore) CreateTable(ctx context.Context, title, header string) (Handle, error) {
	doc := tableDocument{
		Title:     title,
		TableID:   time.Now().UnixNano(),
		CreatedAt: time.Now(),
	}
	if _, err := s.tables.InsertOne(ctx, doc); err != nil {
		return Handle{}, fmt.Errorf("failed to create table %s: %w", title, err)
	}

	h := Handle{ID: doc.TableID, Title: title}
	if err := s.AppendRow(ctx, h, header); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, delErr := s.tables.DeleteOne(cleanupCtx, bson.M{"title": title}); delErr != nil {
			log.Printf("[MongoDB] Failed to remove headerless table %s: %v", title, delErr)
		}
		return Handle{}, err
	}
	return h, nil
}

// ColumnValues returns the rows of the sub-table in insertion order.
func (s *MongoDBRowStore) ColumnValues(ctx context.Context, h Handle) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.rows.Find(ctx, bson.M{"table": h.Title}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", h.Title, err)
	}
	defer cursor.Close(ctx)

	var docs []rowDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rows of %s: %w", h.Title, err)
	}

	values := make([]string, len(docs))
	for i, doc := range docs {
		values[i] = doc.Value
	}
	return values, nil
}

// AppendRow adds a row; a fresh ObjectID sorts after every existing row.
func (s *MongoDBRowStore) AppendRow(ctx context.Context, h Handle, value string) error {
	doc := rowDocument{ID: primitive.NewObjectID(), Table: h.Title, Value: value}
	if _, err := s.rows.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to append to %s: %w", h.Title, err)
	}
	return nil
}

// UpdateRow replaces the value of the row-th row.
func (s *MongoDBRowStore) UpdateRow(ctx context.Context, h Handle, row int, value string) error {
	if row < 1 {
		return ErrRowOutOfRange
	}

	ids, err := s.rowIDs(ctx, h, row, 1)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrRowOutOfRange
	}

	_, err = s.rows.UpdateOne(ctx, bson.M{"_id": ids[0]}, bson.M{"$set": bson.M{"value": value}})
	if err != nil {
		return fmt.Errorf("failed to update row %d of %s: %w", row, h.Title, err)
	}
	return nil
}

// DeleteRows removes rows start..end inclusive.
func (s *MongoDBRowStore) DeleteRows(ctx context.Context, h Handle, start, end int) error {
	if start < 1 || end < start {
		return ErrRowOutOfRange
	}

	ids, err := s.rowIDs(ctx, h, start, end-start+1)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.rows.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to delete rows of %s: %w", h.Title, err)
	}
	return nil
}

func (s *MongoDBRowStore) rowIDs(ctx context.Context, h Handle, row, count int) ([]primitive.ObjectID, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(row - 1)).
		SetLimit(int64(count)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.rows.Find(ctx, bson.M{"table": h.Title}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to locate rows of %s: %w", h.Title, err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// Close closes the MongoDB connection.
func (s *MongoDBRowStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoDBRowStore implements RowStore
var _ RowStore = (*MongoDBRowStore)(nil)
