package repository

import (
	"context"
	"fmt"
	slotserrors "medbook/internal/slots/errors"
	"medbook/pkg/config"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Slots"

type SlotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error)
	FindByKey(ctx context.Context, key model.SlotKey) (*model.Slot, error)
	// Insert returns ErrDuplicate when the slot key is taken.
	Insert(ctx context.Context, slot *model.Slot) error
	// List returns matching slots ordered by date and start time. It is
	// uncapped unless filter.Limit is set.
	List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error)
	// ListIDsBySchedule returns the id of every slot generated by the
	// schedule.
	ListIDsBySchedule(ctx context.Context, scheduleID string) ([]string, error)
	ListKeys(ctx context.Context, doctorID, fromDate, toDate string) (map[model.SlotKey]struct{}, error)
	UpdateAvailability(ctx context.Context, id string, available bool) error
	// ClaimAvailable flips an available slot to unavailable, or returns
	// ErrNotAvailable when it was already taken.
	ClaimAvailable(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	// ClearSchedule detaches the slots from their schedule.
	ClearSchedule(ctx context.Context, ids []string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSlotRepository) objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return nil, err
	}

	var slot model.Slot
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&slot); err != nil {
		if mongotx.IsNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error) {
	out := make(map[string]*model.Slot, len(ids))
	oids := mongotx.ObjectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	slots, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		out[s.ID] = s
	}
	return out, nil
}

func (r *mongoSlotRepository) FindByKey(ctx context.Context, key model.SlotKey) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":  key.DoctorID,
		"date":       key.Date,
		"start_time": key.StartTime,
	}

	var slot model.Slot
	if err := r.collection.FindOne(ctx, filter).Decode(&slot); err != nil {
		if mongotx.IsNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s %s %s", slotserrors.ErrNotFound, key.DoctorID, key.Date, key.StartTime)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) Insert(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	slot.ID = ""
	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s %s %s", slotserrors.ErrDuplicate, slot.DoctorID, slot.Date, slot.StartTime)
		}
		return fmt.Errorf("failed to insert slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	query := bson.M{}
	if filter.DoctorID != "" {
		query["doctor_id"] = filter.DoctorID
	}
	if filter.ScheduleID != "" {
		query["schedule_id"] = filter.ScheduleID
	}
	if dates := dateRange(filter.FromDate, filter.ToDate); dates != nil {
		query["date"] = dates
	}
	if filter.Available != nil {
		query["is_available"] = *filter.Available
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	return r.find(ctx, query, opts)
}

func (r *mongoSlotRepository) ListIDsBySchedule(ctx context.Context, scheduleID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	slots, err := r.find(ctx, bson.M{"schedule_id": scheduleID}, opts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	return ids, nil
}

func (r *mongoSlotRepository) ListKeys(ctx context.Context, doctorID, fromDate, toDate string) (map[model.SlotKey]struct{}, error) {
	query := bson.M{"doctor_id": doctorID}
	if dates := dateRange(fromDate, toDate); dates != nil {
		query["date"] = dates
	}
	opts := options.Find().SetProjection(bson.M{"doctor_id": 1, "date": 1, "start_time": 1})

	slots, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	keys := make(map[model.SlotKey]struct{}, len(slots))
	for _, s := range slots {
		keys[s.Key()] = struct{}{}
	}
	return keys, nil
}

func (r *mongoSlotRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"is_available": available}})
	if err != nil {
		return fmt.Errorf("failed to update slot availability: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoSlotRepository) ClaimAvailable(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "is_available": true}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"is_available": false}})
	if err != nil {
		return fmt.Errorf("failed to claim slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotAvailable, id)
	}
	return nil
}

func (r *mongoSlotRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoSlotRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	oids := mongotx.ObjectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete slots: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoSlotRepository) ClearSchedule(ctx context.Context, ids []string) (int64, error) {
	oids := mongotx.ObjectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$unset": bson.M{"schedule_id": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to detach slots from schedule: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

// dateRange builds an inclusive filter on the YYYY-MM-DD date field. Dates
// compare lexically in calendar order.
func dateRange(from, to string) bson.M {
	if from == "" && to == "" {
		return nil
	}
	r := bson.M{}
	if from != "" {
		r["$gte"] = from
	}
	if to != "" {
		r["$lte"] = to
	}
	return r
}
