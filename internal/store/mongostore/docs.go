package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// docs is a store.Collection over one MongoDB collection. Records are
// stored with their integer key in keyField; the driver's _id is ignored.
type docs[T any] struct {
	view
	coll     *mongo.Collection
	name     string
	keyField string
	key      func(T) int
	// setKey is nil for collections whose records always carry a key.
	setKey func(T, int) T
	filter func(domain.Filter) bson.D
}

func (c docs[T]) ctx(ctx context.Context) context.Context {
	if c.sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, c.sess)
}

func (c docs[T]) notFound(key int) error {
	return fmt.Errorf("%s %d: %w", c.name, key, domain.ErrNotFound)
}

func (c docs[T]) List(ctx context.Context, f domain.Filter) ([]T, error) {
	return c.find(c.ctx(ctx), c.filter(f))
}

func (c docs[T]) find(ctx context.Context, filter bson.D) ([]T, error) {
	cur, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: c.keyField, Value: 1}}))
	if err != nil {
		return nil, classify(err, "find "+c.name)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify(err, "decode "+c.name)
	}
	return out, nil
}

func (c docs[T]) Get(ctx context.Context, key int) (T, error) {
	var rec T
	err := c.coll.FindOne(c.ctx(ctx), bson.D{{Key: c.keyField, Value: key}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, c.notFound(key)
	}
	if err != nil {
		return rec, classify(err, "get "+c.name)
	}
	return rec, nil
}

// nextKey reads the highest key; the unique index on keyField rejects a
// concurrent writer that computed the same value.
func (c docs[T]) nextKey(ctx context.Context) (int, error) {
	var last bson.M
	opts := options.FindOne().
		SetSort(bson.D{{Key: c.keyField, Value: -1}}).
		SetProjection(bson.D{{Key: c.keyField, Value: 1}})
	err := c.coll.FindOne(ctx, bson.D{}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, classify(err, "next "+c.name+" key")
	}
	switch v := last[c.keyField].(type) {
	case int32:
		return int(v) + 1, nil
	case int64:
		return int(v) + 1, nil
	case float64:
		return int(v) + 1, nil
	}
	return 0, fmt.Errorf("next %s key: unexpected key type %T", c.name, last[c.keyField])
}

func (c docs[T]) Insert(ctx context.Context, rec T) (T, error) {
	ctx = c.ctx(ctx)
	var zero T
	if c.key(rec) == 0 {
		if c.setKey == nil {
			return zero, fmt.Errorf("%w: %s requires a key", domain.ErrValidation, c.name)
		}
		k, err := c.nextKey(ctx)
		if err != nil {
			return zero, err
		}
		rec = c.setKey(rec, k)
	}
	if _, err := c.coll.InsertOne(ctx, rec); err != nil {
		return zero, classify(err, "insert "+c.name)
	}
	return rec, nil
}

func (c docs[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	res, err := c.coll.ReplaceOne(c.ctx(ctx), bson.D{{Key: c.keyField, Value: c.key(rec)}}, rec)
	if err != nil {
		return zero, classify(err, "update "+c.name)
	}
	if res.MatchedCount == 0 {
		return zero, c.notFound(c.key(rec))
	}
	return rec, nil
}

func (c docs[T]) Delete(ctx context.Context, key int) (T, error) {
	var rec T
	err := c.coll.FindOneAndDelete(c.ctx(ctx), bson.D{{Key: c.keyField, Value: key}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, c.notFound(key)
	}
	if err != nil {
		return rec, classify(err, "delete "+c.name)
	}
	return rec, nil
}

func (c docs[T]) DeleteWhere(ctx context.Context, f domain.Filter) ([]T, error) {
	ctx = c.ctx(ctx)
	filter := c.filter(f)
	rows, err := c.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := c.coll.DeleteMany(ctx, filter); err != nil {
		return nil, classify(err, "delete "+c.name+" records")
	}
	return rows, nil
}
