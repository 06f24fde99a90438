package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appointmentsrepo "medbook/internal/appointments/repository"
	doctorsrepo "medbook/internal/doctors/repository"
	"medbook/internal/migrations/mongo/validators"
	schedulesrepo "medbook/internal/schedules/repository"
	slotsrepo "medbook/internal/slots/repository"
)

var (
	DoctorsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_slug"),
		},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	SchedulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "is_active", Value: 1},
			{Key: "start_date", Value: -1},
		}},
	}

	SlotsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "doctor_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("unique_doctor_date_start"),
		},
		{Keys: bson.D{{Key: "schedule_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "doctor_id", Value: 1},
			{Key: "is_available", Value: 1},
			{Key: "date", Value: 1},
		}},
	}

	// The partial unique index allows any number of cancelled appointments
	// per slot but only one pending or confirmed. $in in a partial filter
	// needs MongoDB 6.0 or newer.
	AppointmentsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "time_slot_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_active_time_slot").
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{"pending", "confirmed"}},
				}),
		},
		{Keys: bson.D{{Key: "time_slot_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	SlotClaimLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		doctorsrepo.CollectionName: {
			Indexes:   DoctorsIndexes,
			Validator: validators.DoctorValidator,
		},
		schedulesrepo.CollectionName: {
			Indexes:   SchedulesIndexes,
			Validator: validators.ScheduleValidator,
		},
		slotsrepo.CollectionName: {
			Indexes:   SlotsIndexes,
			Validator: validators.SlotValidator,
		},
		appointmentsrepo.CollectionName: {
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
		appointmentsrepo.ClaimLockCollectionName: {
			Indexes:   SlotClaimLocksIndexes,
			Validator: validators.SlotClaimLockValidator,
		},
	}
}

// RunMigration creates the collections with their validators and indexes.
// It is safe to run repeatedly.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running medbook Mongo migrations on database: %s\n", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists, updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
