package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo stores each collection as a MongoDB collection with string ids.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects to uri and uses the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return NewMongo(client.Database(database)), nil
}

// NewMongo wraps an already configured database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{client: db.Client(), db: db}
}

func (m *Mongo) unavailable(op string, err error) error {
	return &UnavailableError{Backend: "mongo", Op: op, Cause: err}
}

func (m *Mongo) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M(nonNil(filter))).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return m.unavailable("find_one", err)
	}
	return nil
}

func (m *Mongo) FindMany(ctx context.Context, collection string, filter Filter, out any) error {
	cur, err := m.db.Collection(collection).Find(ctx, bson.M(nonNil(filter)), options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return m.unavailable("find_many", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return m.unavailable("find_many", err)
	}
	return nil
}

func (m *Mongo) InsertOne(ctx context.Context, collection string, doc any) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	var d bson.M
	if err := bson.Unmarshal(raw, &d); err != nil {
		return "", fmt.Errorf("document must be a BSON document: %w", err)
	}
	id, _ := d["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		d["_id"] = id
	}

	if _, err := m.db.Collection(collection).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
		return "", m.unavailable("insert_one", err)
	}
	return id, nil
}

func (m *Mongo) UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (bool, error) {
	patch := bson.M{}
	if len(update.Set) > 0 {
		set := bson.M{}
		for k, v := range update.Set {
			if k != "_id" {
				set[k] = v
			}
		}
		patch["$set"] = set
	}
	if len(update.Push) > 0 {
		push := bson.M{}
		for k, values := range update.Push {
			push[k] = bson.M{"$each": nonNilSlice(values)}
		}
		patch["$push"] = push
	}
	if len(patch) == 0 {
		n, err := m.db.Collection(collection).CountDocuments(ctx, bson.M(nonNil(filter)), options.Count().SetLimit(1))
		if err != nil {
			return false, m.unavailable("update_one", err)
		}
		return n > 0, nil
	}

	result, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(nonNil(filter)), patch)
	if err != nil {
		return false, m.unavailable("update_one", err)
	}
	return result.MatchedCount > 0, nil
}

// Ping checks MongoDB connectivity by pinging the server.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the MongoDB client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Store = (*Mongo)(nil)
