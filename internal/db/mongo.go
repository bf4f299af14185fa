package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a SongStore backed by a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type songDocument struct {
	ID        string    `bson:"_id"`
	SongKey   string    `bson:"song_key"`
	ArtistKey string    `bson:"artist_key"`
	Song      string    `bson:"song"`
	Artist    string    `bson:"artist"`
	Lyrics    string    `bson:"lyrics"`
	Mood      string    `bson:"mood"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d songDocument) song() (*Song, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing song id: %w", err)
	}
	return &Song{
		ID:        id,
		Song:      d.Song,
		Artist:    d.Artist,
		Lyrics:    d.Lyrics,
		Mood:      d.Mood,
		CreatedAt: d.CreatedAt,
	}, nil
}

// OpenMongo connects to uri and ensures the key and mood indexes exist.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "song_key", Value: 1}, {Key: "artist_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "mood", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Get retrieves a song by key.
func (s *MongoStore) Get(ctx context.Context, key Key) (*Song, error) {
	filter := bson.M{"song_key": key.Song, "artist_key": key.Artist}

	var doc songDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song %s: %w", key, err)
	}
	return doc.song()
}

// ListByMood retrieves all songs with the mood ordered by creation time.
func (s *MongoStore) ListByMood(ctx context.Context, mood string) ([]Song, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"mood": mood}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying songs by mood: %w", err)
	}
	defer cursor.Close(ctx)

	var songs []Song
	for cursor.Next(ctx) {
		var doc songDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding song: %w", err)
		}
		song, err := doc.song()
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, cursor.Err()
}

// Upsert creates or updates a song.
func (s *MongoStore) Upsert(ctx context.Context, song *Song) error {
	key, err := prepare(song)
	if err != nil {
		return err
	}
	if song.ID == uuid.Nil {
		song.ID = uuid.New()
	}

	filter := bson.M{"song_key": key.Song, "artist_key": key.Artist}
	update := bson.M{
		"$set": bson.M{
			"song":   song.Song,
			"artist": song.Artist,
			"lyrics": song.Lyrics,
			"mood":   song.Mood,
		},
		"$setOnInsert": bson.M{
			"_id":        song.ID.String(),
			"created_at": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc songDocument
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}
	stored, err := doc.song()
	if err != nil {
		return err
	}
	song.ID, song.CreatedAt = stored.ID, stored.CreatedAt
	return nil
}

// CountByMood returns the number of songs per mood.
func (s *MongoStore) CountByMood(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$mood"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("counting songs: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int)
	for cursor.Next(ctx) {
		var row struct {
			Mood  string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decoding count: %w", err)
		}
		counts[row.Mood] = row.Count
	}
	return counts, cursor.Err()
}
