package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// Collection names.
const (
	UsersCollection      = "users"
	AttendanceCollection = "attendance"
	TodosCollection      = "todos"
	ArchiveCollection    = "deleted_users"
)

// Store keeps the four collections in one MongoDB database. Atomic needs a
// replica set or sharded cluster because it uses multi-document
// transactions.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, checks the connection and creates the indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w: %v", domain.ErrStorageUnavailable, err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the key and uniqueness indexes every collection
// relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		AttendanceCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
		},
		TodosCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		ArchiveCollection: {
			{Keys: bson.D{{Key: "user.id", Value: 1}}, Options: unique},
		},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return classify(err, "create indexes on "+name)
		}
	}
	return nil
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Atomic runs fn inside a multi-document transaction. The driver retries fn
// on transient transaction errors.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return classify(err, "start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(mongo.SessionContext) (interface{}, error) {
		return nil, fn(s.view(sess))
	})
	return err
}

func (s *Store) Users() store.Collection[domain.User] {
	return store.WriteThrough(s.view(nil).Users(), s.Atomic, store.PickUsers)
}

func (s *Store) Attendance() store.Collection[domain.AttendanceRecord] {
	return store.WriteThrough(s.view(nil).Attendance(), s.Atomic, store.PickAttendance)
}

func (s *Store) Todos() store.Collection[domain.Todo] {
	return store.WriteThrough(s.view(nil).Todos(), s.Atomic, store.PickTodos)
}

func (s *Store) Archive() store.Collection[domain.ArchiveEntry] {
	return store.WriteThrough(s.view(nil).Archive(), s.Atomic, store.PickArchive)
}

func (s *Store) view(sess mongo.Session) view {
	return view{db: s.db, sess: sess}
}

// view binds collections to an optional session.
type view struct {
	db   *mongo.Database
	sess mongo.Session
}

func (v view) Users() store.Collection[domain.User] {
	return docs[domain.User]{
		view:     v,
		coll:     v.db.Collection(UsersCollection),
		name:     "user",
		keyField: "id",
		key:      func(u domain.User) int { return u.ID },
		setKey:   func(u domain.User, k int) domain.User { u.ID = k; return u },
		filter:   userFilter,
	}
}

func (v view) Attendance() store.Collection[domain.AttendanceRecord] {
	return docs[domain.AttendanceRecord]{
		view:     v,
		coll:     v.db.Collection(AttendanceCollection),
		name:     "attendance record",
		keyField: "id",
		key:      func(r domain.AttendanceRecord) int { return r.ID },
		setKey:   func(r domain.AttendanceRecord, k int) domain.AttendanceRecord { r.ID = k; return r },
		filter:   attendanceFilter,
	}
}

func (v view) Todos() store.Collection[domain.Todo] {
	return docs[domain.Todo]{
		view:     v,
		coll:     v.db.Collection(TodosCollection),
		name:     "todo",
		keyField: "id",
		key:      func(t domain.Todo) int { return t.ID },
		setKey:   func(t domain.Todo, k int) domain.Todo { t.ID = k; return t },
		filter:   ownerFilter("user_id"),
	}
}

func (v view) Archive() store.Collection[domain.ArchiveEntry] {
	return docs[domain.ArchiveEntry]{
		view:     v,
		coll:     v.db.Collection(ArchiveCollection),
		name:     "archive entry",
		keyField: "user.id",
		key:      func(e domain.ArchiveEntry) int { return e.User.ID },
		filter:   ownerFilter("user.id"),
	}
}

func userFilter(f domain.Filter) bson.D {
	d := bson.D{}
	if f.UserID != 0 {
		d = append(d, bson.E{Key: "id", Value: f.UserID})
	}
	if f.Email != "" {
		d = append(d, bson.E{Key: "email", Value: f.Email})
	}
	return d
}

func ownerFilter(field string) func(domain.Filter) bson.D {
	return func(f domain.Filter) bson.D {
		if f.UserID == 0 {
			return bson.D{}
		}
		return bson.D{{Key: field, Value: f.UserID}}
	}
}

// attendanceFilter matches month and year with an anchored regex on the
// YYYY-MM-DD date string.
func attendanceFilter(f domain.Filter) bson.D {
	d := ownerFilter("user_id")(f)
	if f.Date != "" {
		d = append(d, bson.E{Key: "date", Value: f.Date})
	} else if f.Month != 0 || f.Year != 0 {
		d = append(d, bson.E{Key: "date", Value: bson.M{"$regex": datePattern(f)}})
	}
	return d
}

func datePattern(f domain.Filter) string {
	year, month := `\d{4}`, `\d{2}`
	if f.Year != 0 {
		year = fmt.Sprintf("%04d", f.Year)
	}
	if f.Month != 0 {
		month = fmt.Sprintf("%02d", f.Month)
	}
	return "^" + year + "-" + month + "-"
}

// classify maps driver errors onto domain errors.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "email") {
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateEmail)
		}
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
