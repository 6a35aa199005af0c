// Package mongo provides the MongoDB backend. Compound operations run in
// multi-document transactions, which require a replica set or sharded
// cluster (a single-node replica set is enough).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/detention"
	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/student"
)

// Collection name constants.
const (
	colClasses  = "detention_classes"
	colStudents = "detention_students"
	colEntries  = "detention_entries"
)

// ledgerOrder sorts entries newest first with seq as the tie-break.
var ledgerOrder = bson.D{{Key: "occurred_at", Value: -1}, {Key: "seq", Value: -1}}

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using the MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store over database dbName of a connected client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{
		client: client,
		db:     client.Database(dbName),
	}
}

// Open connects to uri and returns a store over dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("detention/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("detention/mongo: ping: %w", err)
	}
	return New(client, dbName), nil
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all detention collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("detention/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Class Store ====================

func (s *Store) CreateClass(ctx context.Context, c *class.Class) error {
	_, err := s.db.Collection(colClasses).InsertOne(ctx, toClassModel(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return detention.ErrAlreadyExists
		}
		return fmt.Errorf("detention/mongo: create class: %w", err)
	}
	return nil
}

func (s *Store) GetClass(ctx context.Context, classID id.ClassID) (*class.Class, error) {
	var m classModel
	err := s.db.Collection(colClasses).FindOne(ctx, bson.M{"_id": classID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, detention.ErrClassNotFound
		}
		return nil, fmt.Errorf("detention/mongo: get class: %w", err)
	}
	return fromClassModel(&m)
}

func (s *Store) ListClasses(ctx context.Context) ([]*class.Class, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(colClasses).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("detention/mongo: list classes: %w", err)
	}

	var models []classModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("detention/mongo: list classes: %w", err)
	}

	result := make([]*class.Class, len(models))
	for i := range models {
		c, err := fromClassModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Student Store ====================

func (s *Store) CreateStudent(ctx context.Context, st *student.Student) error {
	return s.CreateStudents(ctx, []*student.Student{st})
}

func (s *Store) CreateStudents(ctx context.Context, students []*student.Student) error {
	if len(students) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(ctx context.Context) error {
		return s.insertStudents(ctx, students)
	})
	return s.wrap("create students", err)
}

func (s *Store) GetStudent(ctx context.Context, studentID id.StudentID) (*student.Student, error) {
	var m studentModel
	err := s.db.Collection(colStudents).FindOne(ctx, bson.M{"_id": studentID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, detention.ErrStudentNotFound
		}
		return nil, fmt.Errorf("detention/mongo: get student: %w", err)
	}
	return fromStudentModel(&m)
}

func (s *Store) ListStudents(ctx context.Context, classID id.ClassID) ([]*student.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.db.Collection(colStudents).Find(ctx, bson.M{"class_id": classID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("detention/mongo: list students: %w", err)
	}

	var models []studentModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("detention/mongo: list students: %w", err)
	}

	result := make([]*student.Student, len(models))
	for i := range models {
		st, err := fromStudentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func (s *Store) DeleteStudentsByClass(ctx context.Context, classID id.ClassID) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.deleteStudents(ctx, classID)
		return err
	})
	if err != nil {
		return 0, s.wrap("delete students", err)
	}
	return removed, nil
}

func (s *Store) ReplaceStudents(ctx context.Context, classID id.ClassID, students []*student.Student) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(ctx context.Context) error {
		if err := s.requireClass(ctx, classID); err != nil {
			return err
		}
		for _, st := range students {
			if st.ClassID != classID {
				return detention.ErrInvalidInput
			}
		}

		var err error
		if removed, err = s.deleteStudents(ctx, classID); err != nil {
			return err
		}
		return s.insertStudents(ctx, students)
	})
	if err != nil {
		return 0, s.wrap("replace students", err)
	}
	return removed, nil
}

func (s *Store) insertStudents(ctx context.Context, students []*student.Student) error {
	checked := make(map[id.ClassID]struct{})
	docs := make([]any, len(students))
	for i, st := range students {
		if _, ok := checked[st.ClassID]; !ok {
			if err := s.requireClass(ctx, st.ClassID); err != nil {
				return err
			}
			checked[st.ClassID] = struct{}{}
		}
		docs[i] = toStudentModel(st)
	}
	_, err := s.db.Collection(colStudents).InsertMany(ctx, docs)
	return err
}

// deleteStudents removes the class's entries first, then its students.
func (s *Store) deleteStudents(ctx context.Context, classID id.ClassID) (int64, error) {
	filter := bson.M{"class_id": classID.String()}
	cur, err := s.db.Collection(colStudents).Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	var owned []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &owned); err != nil {
		return 0, err
	}
	if len(owned) == 0 {
		return 0, nil
	}

	ids := make([]string, len(owned))
	for i, o := range owned {
		ids[i] = o.ID
	}
	if _, err := s.db.Collection(colEntries).DeleteMany(ctx, bson.M{"student_id": bson.M{"$in": ids}}); err != nil {
		return 0, err
	}
	res, err := s.db.Collection(colStudents).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) requireClass(ctx context.Context, classID id.ClassID) error {
	n, err := s.db.Collection(colClasses).CountDocuments(ctx, bson.M{"_id": classID.String()})
	if err != nil {
		return err
	}
	if n == 0 {
		return detention.ErrClassNotFound
	}
	return nil
}

// ==================== Entry Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *entry.Entry) (*student.Student, error) {
	var out *student.Student
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.incTotal(ctx, e.StudentID, e.DeltaMinutes, e.Timestamp)
		if err != nil {
			return err
		}
		if _, err := s.db.Collection(colEntries).InsertOne(ctx, toEntryModel(e)); err != nil {
			return err
		}
		out, err = fromStudentModel(m)
		return err
	})
	if err != nil {
		return nil, s.wrap("append entry", err)
	}
	return out, nil
}

func (s *Store) RemoveLatestEntry(ctx context.Context, studentID id.StudentID, at time.Time) (*entry.Entry, *student.Student, error) {
	var (
		removed *entry.Entry
		out     *student.Student
	)
	err := s.withTx(ctx, func(ctx context.Context) error {
		// Touch the student first so a concurrent writer conflicts here.
		if _, err := s.lockStudent(ctx, studentID); err != nil {
			return err
		}

		var em entryModel
		err := s.db.Collection(colEntries).FindOneAndDelete(ctx,
			bson.M{"student_id": studentID.String()},
			options.FindOneAndDelete().SetSort(ledgerOrder),
		).Decode(&em)
		if err != nil {
			if isNoDocuments(err) {
				return detention.ErrNoEntries
			}
			return err
		}

		sm, err := s.incTotal(ctx, studentID, -em.DeltaMinutes, at)
		if err != nil {
			return err
		}
		if removed, err = fromEntryModel(&em); err != nil {
			return err
		}
		out, err = fromStudentModel(sm)
		return err
	})
	if err != nil {
		return nil, nil, s.wrap("remove latest entry", err)
	}
	return removed, out, nil
}

func (s *Store) ListEntries(ctx context.Context, studentID id.StudentID, opts entry.ListOpts) ([]*entry.Entry, error) {
	findOpts := options.Find().SetSort(ledgerOrder)
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colEntries).Find(ctx, bson.M{"student_id": studentID.String()}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("detention/mongo: list entries: %w", err)
	}

	var models []entryModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("detention/mongo: list entries: %w", err)
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) LatestEntry(ctx context.Context, studentID id.StudentID) (*entry.Entry, error) {
	var m entryModel
	err := s.db.Collection(colEntries).FindOne(ctx,
		bson.M{"student_id": studentID.String()},
		options.FindOne().SetSort(ledgerOrder),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, detention.ErrNoEntries
		}
		return nil, fmt.Errorf("detention/mongo: latest entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) ReconcileTotal(ctx context.Context, studentID id.StudentID, at time.Time) (int64, int64, error) {
	var before, after int64
	err := s.withTx(ctx, func(ctx context.Context) error {
		sm, err := s.lockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		before = sm.TotalMinutes

		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"student_id": studentID.String()}}},
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: nil},
				{Key: "sum", Value: bson.M{"$sum": "$delta_minutes"}},
			}}},
		}
		cur, err := s.db.Collection(colEntries).Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		var rows []struct {
			Sum int64 `bson:"sum"`
		}
		if err := cur.All(ctx, &rows); err != nil {
			return err
		}
		if len(rows) > 0 {
			after = rows[0].Sum
		}

		if after == before {
			return nil
		}
		_, err = s.db.Collection(colStudents).UpdateOne(ctx,
			bson.M{"_id": studentID.String()},
			bson.M{"$set": bson.M{"total_minutes": after, "updated_at": at}},
		)
		return err
	})
	if err != nil {
		return 0, 0, s.wrap("reconcile total", err)
	}
	return before, after, nil
}

// incTotal adds delta to the student's total, stamps updated_at and
// returns the updated document.
func (s *Store) incTotal(ctx context.Context, studentID id.StudentID, delta int64, at time.Time) (*studentModel, error) {
	return s.updateStudent(ctx, studentID, bson.M{
		"$inc": bson.M{"total_minutes": delta},
		"$set": bson.M{"updated_at": at},
	})
}

// lockStudent writes a no-op increment so that a concurrent transaction
// on the same student conflicts here. updated_at is left alone.
func (s *Store) lockStudent(ctx context.Context, studentID id.StudentID) (*studentModel, error) {
	return s.updateStudent(ctx, studentID, bson.M{"$inc": bson.M{"total_minutes": int64(0)}})
}

func (s *Store) updateStudent(ctx context.Context, studentID id.StudentID, update bson.M) (*studentModel, error) {
	var m studentModel
	err := s.db.Collection(colStudents).FindOneAndUpdate(ctx,
		bson.M{"_id": studentID.String()},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, detention.ErrStudentNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ==================== Helpers ====================

func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if detention.IsNotFound(err) ||
		errors.Is(err, detention.ErrNoEntries) ||
		errors.Is(err, detention.ErrInvalidInput) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		return detention.ErrAlreadyExists
	}
	return fmt.Errorf("detention/mongo: %s: %w", op, err)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all detention
// collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colClasses: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colStudents: {
			{Keys: bson.D{{Key: "class_id", Value: 1}}},
		},
		colEntries: {
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "occurred_at", Value: -1}, {Key: "seq", Value: -1}}},
		},
	}
}
