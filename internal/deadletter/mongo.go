package deadletter

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/taskhub/pkg/api"
)

// MongoStore is a Store backed by a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a Mongo-backed store. dbName defaults to "taskhub"
// and collName to "dead_letters".
func NewMongoStore(client *mongo.Client, dbName, collName string) *MongoStore {
	if dbName == "" {
		dbName = "taskhub"
	}
	if collName == "" {
		collName = "dead_letters"
	}
	return &MongoStore{coll: client.Database(dbName).Collection(collName)}
}

// Timestamps are kept as nanoseconds; BSON dates only hold milliseconds.
type mongoDeadLetterDoc struct {
	ID         string `bson:"_id"`
	Kind       string `bson:"kind"`
	InstanceID string `bson:"instance_id"`
	TaskID     int32  `bson:"task_id"`
	Name       string `bson:"name"`
	Attempts   int    `bson:"attempts"`
	Error      string `bson:"error,omitempty"`
	Payload    []byte `bson:"payload,omitempty"`
	AtUnixNano int64  `bson:"at_unix_nano"`
}

func toMongoDoc(dl *api.DeadLetter) mongoDeadLetterDoc {
	return mongoDeadLetterDoc{
		ID:         dl.ID,
		Kind:       string(dl.Kind),
		InstanceID: dl.InstanceID,
		TaskID:     dl.TaskID,
		Name:       dl.Name,
		Attempts:   dl.Attempts,
		Error:      dl.Error,
		Payload:    dl.Payload,
		AtUnixNano: dl.At.UnixNano(),
	}
}

func (d mongoDeadLetterDoc) deadLetter() *api.DeadLetter {
	return &api.DeadLetter{
		ID:         d.ID,
		Kind:       api.WorkItemKind(d.Kind),
		InstanceID: d.InstanceID,
		TaskID:     d.TaskID,
		Name:       d.Name,
		Attempts:   d.Attempts,
		Error:      d.Error,
		Payload:    d.Payload,
		At:         time.Unix(0, d.AtUnixNano),
	}
}

func (s *MongoStore) Put(ctx context.Context, dl *api.DeadLetter) error {
	_, err := s.coll.InsertOne(ctx, toMongoDoc(dl))
	return err
}

func (s *MongoStore) Get(ctx context.Context, id string) (*api.DeadLetter, error) {
	var doc mongoDeadLetterDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.deadLetter(), nil
}

func (s *MongoStore) List(ctx context.Context, filter Filter) ([]*api.DeadLetter, error) {
	bfilter := bson.M{}
	if filter.Kind != "" {
		bfilter["kind"] = string(filter.Kind)
	}
	if filter.InstanceID != "" {
		bfilter["instance_id"] = filter.InstanceID
	}

	opts := options.Find().SetSort(bson.D{{Key: "at_unix_nano", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bfilter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var result []*api.DeadLetter
	for cur.Next(ctx) {
		var doc mongoDeadLetterDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.deadLetter())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
