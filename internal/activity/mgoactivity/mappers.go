package mgoactivity

import (
	"time"

	"github.com/denismitr/heroic/internal/activity"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type entryRecord struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Kind      string             `bson:"kind"`
	UserID    string             `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func mapEntryToMongoRecord(entry *activity.Entry) (*entryRecord, error) {
	id, err := primitive.ObjectIDFromHex(entry.ID)
	if err != nil {
		return nil, errors.Wrapf(activity.ErrStoreWriteFailed, "invalid entry ID [%s]", entry.ID)
	}

	return &entryRecord{
		ID:        id,
		Title:     entry.Title,
		Kind:      entry.Kind,
		UserID:    entry.UserID,
		CreatedAt: entry.CreatedAt,
	}, nil
}

func mapMongoRecordToEntry(er *entryRecord) activity.Entry {
	return activity.Entry{
		ID:        er.ID.Hex(),
		Title:     er.Title,
		Kind:      er.Kind,
		UserID:    er.UserID,
		CreatedAt: er.CreatedAt,
	}
}
