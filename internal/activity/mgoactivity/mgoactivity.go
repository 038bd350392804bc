package mgoactivity

import (
	"context"
	"strings"
	"time"

	"github.com/denismitr/heroic/internal/activity"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// one activity insert never waits for longer than this
const insertTimeout = 2 * time.Second

type Config struct {
	DB                 string
	ActivityCollection string
}

// MongoActivityStore keeps the activity feed in a MongoDB collection
type MongoActivityStore struct {
	db       *mongo.Database
	activity *mongo.Collection
}

func New(client *mongo.Client, cfg Config) *MongoActivityStore {
	s := MongoActivityStore{
		db: client.Database(cfg.DB),
	}

	s.activity = s.db.Collection(cfg.ActivityCollection)

	return &s
}

func (s *MongoActivityStore) Migrate(ctx context.Context) error {
	_, err := s.activity.Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	)

	if err != nil {
		return errors.Wrap(err, "could not create index on activity collection")
	}

	return nil
}

func (s *MongoActivityStore) Record(ctx context.Context, title, kind, userID string) (*activity.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, activity.ErrInvalidUser
	}

	entry := &activity.Entry{
		ID:        primitive.NewObjectID().Hex(),
		Title:     title,
		Kind:      kind,
		UserID:    userID,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	er, err := mapEntryToMongoRecord(entry)
	if err != nil {
		return nil, err
	}

	if err := s.createEntry(ctx, er); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *MongoActivityStore) Recent(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	if limit <= 0 {
		limit = activity.DefaultRecentLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.activity.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, errors.Wrapf(activity.ErrStoreReadFailed, "mongodb could not find activity of user %s: %v", userID, err)
	}

	var records []entryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrapf(activity.ErrStoreReadFailed, "mongodb could not decode activity: %v", err)
	}

	entries := make([]activity.Entry, 0, len(records))
	for i := range records {
		entries = append(entries, mapMongoRecordToEntry(&records[i]))
	}

	return entries, nil
}

func (s *MongoActivityStore) createEntry(ctx context.Context, er *entryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	result, err := s.activity.InsertOne(ctx, er)
	if err != nil || result == nil {
		return errors.Wrapf(activity.ErrStoreWriteFailed, "could not insert activity into MongoDB collection %v", err)
	}

	return nil
}
