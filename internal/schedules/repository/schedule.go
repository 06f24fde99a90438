package repository

import (
	"context"
	"fmt"
	scheduleserrors "medbook/internal/schedules/errors"
	"medbook/pkg/config"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Schedules"
)

type ScheduleRepository interface {
	Create(ctx context.Context, sc *model.Schedule) error
	FindByID(ctx context.Context, id string) (*model.Schedule, error)
	// FindByDoctor returns the doctor's schedules, newest start_date first.
	FindByDoctor(ctx context.Context, doctorID string, activeOnly bool) ([]*model.Schedule, error)
	Update(ctx context.Context, id string, sc *model.Schedule) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

// scheduleDocument is the stored form of a schedule. Weekdays are kept as
// the comma separated list, e.g. "1,3,5".
type scheduleDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	DoctorID       string             `bson:"doctor_id"`
	StartDate      string             `bson:"start_date"`
	EndDate        string             `bson:"end_date"`
	DaysOfWeek     string             `bson:"days_of_week"`
	DailyStartTime string             `bson:"daily_start_time"`
	DailyEndTime   string             `bson:"daily_end_time"`
	IsActive       bool               `bson:"is_active"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func toDocument(sc *model.Schedule) scheduleDocument {
	return scheduleDocument{
		DoctorID:       sc.DoctorID,
		StartDate:      sc.StartDate,
		EndDate:        sc.EndDate,
		DaysOfWeek:     sc.DaysOfWeek.String(),
		DailyStartTime: sc.DailyStartTime,
		DailyEndTime:   sc.DailyEndTime,
		IsActive:       sc.IsActive,
		CreatedAt:      sc.CreatedAt,
	}
}

func (d *scheduleDocument) toModel() (*model.Schedule, error) {
	days, err := model.ParseWeekdaySet(d.DaysOfWeek)
	if err != nil {
		return nil, fmt.Errorf("schedule %s has malformed days_of_week %q: %w", d.ID.Hex(), d.DaysOfWeek, err)
	}
	return &model.Schedule{
		ID:             d.ID.Hex(),
		DoctorID:       d.DoctorID,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		DaysOfWeek:     days,
		DailyStartTime: d.DailyStartTime,
		DailyEndTime:   d.DailyEndTime,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
	}, nil
}

type mongoScheduleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoScheduleRepository(cfg *config.Config) ScheduleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoScheduleRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoScheduleRepository) Create(ctx context.Context, sc *model.Schedule) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, toDocument(sc))
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		sc.ID = oid.Hex()
	}
	return nil
}

func (r *mongoScheduleRepository) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	var doc scheduleDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if mongotx.IsNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find schedule: %w", err)
	}

	return doc.toModel()
}

func (r *mongoScheduleRepository) FindByDoctor(ctx context.Context, doctorID string, activeOnly bool) ([]*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"doctor_id": doctorID}
	if activeOnly {
		filter["is_active"] = true
	}

	const maxSchedulesPerDoctor = 1000
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(maxSchedulesPerDoctor)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []scheduleDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}

	schedules := make([]*model.Schedule, 0, len(docs))
	for i := range docs {
		sc, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, nil
}

func (r *mongoScheduleRepository) Update(ctx context.Context, id string, sc *model.Schedule) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"start_date":       sc.StartDate,
			"end_date":         sc.EndDate,
			"days_of_week":     sc.DaysOfWeek.String(),
			"daily_start_time": sc.DailyStartTime,
			"daily_end_time":   sc.DailyEndTime,
			"is_active":        sc.IsActive,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoScheduleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoScheduleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
