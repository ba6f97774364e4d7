package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"moviefilter-bot/internal/catalog"
)

const (
	DefaultDatabase = "movie_bot_db"

	moviesCollection = "movies"
	usersCollection  = "users"
)

type Mongo struct {
	client *mongo.Client
	movies *mongo.Collection
	users  *mongo.Collection
}

type movieDoc struct {
	Title         string    `bson:"title"`
	OriginalTitle string    `bson:"original_title"`
	Year          int       `bson:"year"`
	IMDbID        string    `bson:"imdb_id"`
	FileID        *string   `bson:"file_id"`
	ThumbnailID   *string   `bson:"thumbnail_id"`
	DirectLink    *string   `bson:"direct_link"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d movieDoc) entry() catalog.Entry {
	return catalog.Entry{
		Title:           d.OriginalTitle,
		NormalizedTitle: d.Title,
		Year:            d.Year,
		ExternalID:      d.IMDbID,
		MediaRef:        d.FileID,
		ThumbnailRef:    d.ThumbnailID,
		ExternalLink:    d.DirectLink,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// NewMongo connects, verifies the deployment with a ping and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{client: client, movies: db.Collection(moviesCollection), users: db.Collection(usersCollection)}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.movies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "imdb_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{bson.E{Key: "title", Value: 1}, bson.E{Key: "imdb_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) FindByExactKey(ctx context.Context, key string) (*catalog.Entry, error) {
	var doc movieDoc
	err := m.movies.FindOne(ctx, bson.M{"imdb_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	e := doc.entry()
	return &e, nil
}

// FindBySubstring matches text literally inside the lowercased title.
func (m *Mongo) FindBySubstring(ctx context.Context, text string, limit int) ([]catalog.Entry, error) {
	if limit <= 0 {
		return []catalog.Entry{}, nil
	}
	opts := options.Find().SetSort(titleOrder()).SetLimit(int64(limit))
	cur, err := m.movies.Find(ctx, titleFilter(text), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	entries := make([]catalog.Entry, 0, limit)
	for cur.Next(ctx) {
		var doc movieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode movie: %w", err)
		}
		entries = append(entries, doc.entry())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return entries, nil
}

// UpsertByKey replaces every field of the entry under key. created_at is only
// written on insert.
func (m *Mongo) UpsertByKey(ctx context.Context, key string, d catalog.Draft, now time.Time) (*catalog.Entry, error) {
	e := d.Entry(now)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc movieDoc
	err := m.movies.FindOneAndUpdate(ctx,
		bson.M{"imdb_id": key},
		bson.M{
			"$set": bson.M{
				"title":          e.NormalizedTitle,
				"original_title": e.Title,
				"year":           e.Year,
				"imdb_id":        key,
				"file_id":        e.MediaRef,
				"thumbnail_id":   e.ThumbnailRef,
				"direct_link":    e.ExternalLink,
				"updated_at":     e.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": e.CreatedAt},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	out := doc.entry()
	return &out, nil
}

// UpsertUser records the last activity of a bot user.
func (m *Mongo) UpsertUser(ctx context.Context, u catalog.User) error {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"username": u.Name, "last_active": u.LastActive}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrStoreUnavailable, err)
	}
	return nil
}

func titleFilter(text string) bson.M {
	if text == "" {
		return bson.M{}
	}
	return bson.M{"title": bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}}
}

func titleOrder() bson.D {
	return bson.D{bson.E{Key: "title", Value: 1}, bson.E{Key: "imdb_id", Value: 1}}
}
