package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoEntry is the stored document shape.
type mongoEntry struct {
	URL          string `bson:"url"`
	Title        string `bson:"title"`
	HasBeenRead  bool   `bson:"has_been_read"`
	CreationTime int64  `bson:"creation_time"`
}

// MongoStore keeps entries in a MongoDB collection with a unique index on url.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        Clock
}

// ConnectMongo connects, pings and ensures the url index exists.
func ConnectMongo(ctx context.Context, uri, databaseName, collectionName string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if databaseName == "" {
		databaseName = "readinglist"
	}
	if collectionName == "" {
		collectionName = "entries"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(databaseName).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create url index: %w", err)
	}

	return &MongoStore{client: client, collection: coll, now: time.Now}, nil
}

// SetClock replaces the clock used to assign creation times.
func (s *MongoStore) SetClock(c Clock) {
	if c != nil {
		s.now = c
	}
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) AddEntry(ctx context.Context, title, rawURL string, hasBeenRead bool) error {
	title, u, err := normalizeNew(title, rawURL)
	if err != nil {
		return err
	}

	var latest mongoEntry
	opts := options.FindOne().SetSort(bson.D{{Key: "creation_time", Value: -1}})
	err = s.collection.FindOne(ctx, bson.D{}, opts).Decode(&latest)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("read latest creation time: %w", err)
	}

	doc := mongoEntry{
		URL:          u,
		Title:        title,
		HasBeenRead:  hasBeenRead,
		CreationTime: nextCreationTime(s.now(), latest.CreationTime),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("add %s: %w", u, ErrDuplicate)
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *MongoStore) RemoveEntry(ctx context.Context, rawURL string) error {
	u := strings.TrimSpace(rawURL)
	res, err := s.collection.DeleteOne(ctx, bson.D{{Key: "url", Value: u}})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("remove %s: %w", u, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context) ([]Entry, error) {
	cur, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	var docs []mongoEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, Entry(d))
	}
	return out, nil
}
