package repository

import (
	"context"
	"fmt"
	appointmentserrors "medbook/internal/appointments/errors"
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
	CollectionName = "Appointments"

	maxListResults = 5000
)

var activeStatuses = bson.A{string(model.StatusPending), string(model.StatusConfirmed)}

type AppointmentRepository interface {
	// Create returns ErrAlreadyBooked when the slot already has an active appointment.
	Create(ctx context.Context, a *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	// FindActiveBySlot returns ErrNotFound when the slot has no active appointment.
	FindActiveBySlot(ctx context.Context, slotID string) (*model.Appointment, error)
	ActiveBySlots(ctx context.Context, slotIDs []string) (map[string]*model.Appointment, error)
	// SlotsWithAppointments reports which of the slots are referenced by an
	// appointment of any status.
	SlotsWithAppointments(ctx context.Context, slotIDs []string) (map[string]bool, error)
	List(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAppointmentRepository) objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	a.ID = ""
	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrAlreadyBooked, a.TimeSlotID)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return nil, err
	}

	var a model.Appointment
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&a); err != nil {
		if mongotx.IsNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) FindActiveBySlot(ctx context.Context, slotID string) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"time_slot_id": slotID,
		"status":       bson.M{"$in": activeStatuses},
	}

	var a model.Appointment
	if err := r.collection.FindOne(ctx, filter).Decode(&a); err != nil {
		if mongotx.IsNoDocuments(err) {
			return nil, fmt.Errorf("%w: no active appointment for slot %s", appointmentserrors.ErrNotFound, slotID)
		}
		return nil, fmt.Errorf("failed to find appointment for slot: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) ActiveBySlots(ctx context.Context, slotIDs []string) (map[string]*model.Appointment, error) {
	out := make(map[string]*model.Appointment, len(slotIDs))
	if len(slotIDs) == 0 {
		return out, nil
	}

	filter := bson.M{
		"time_slot_id": bson.M{"$in": slotIDs},
		"status":       bson.M{"$in": activeStatuses},
	}
	appointments, err := r.find(ctx, filter, options.Find())
	if err != nil {
		return nil, err
	}
	for _, a := range appointments {
		out[a.TimeSlotID] = a
	}
	return out, nil
}

func (r *mongoAppointmentRepository) SlotsWithAppointments(ctx context.Context, slotIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(slotIDs))
	if len(slotIDs) == 0 {
		return out, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "time_slot_id", bson.M{"time_slot_id": bson.M{"$in": slotIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query referenced slots: %w", err)
	}
	for _, v := range values {
		if id, ok := v.(string); ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r *mongoAppointmentRepository) List(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(maxListResults)

	return r.find(ctx, filter, opts)
}

func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": at.UTC().Truncate(time.Millisecond),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrAlreadyBooked, id)
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAppointmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := r.objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoAppointmentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}
