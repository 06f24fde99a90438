package validators

import "go.mongodb.org/mongo-driver/bson"

var ScheduleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"start_date",
			"end_date",
			"days_of_week",
			"daily_start_time",
			"daily_end_time",
			"is_active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"start_date": bson.M{
				"bsonType": "string",
				"pattern":  datePattern,
			},

			"end_date": bson.M{
				"bsonType": "string",
				"pattern":  datePattern,
			},

			"days_of_week": bson.M{
				"bsonType": "string",
				"pattern":  "^[0-6](,[0-6]){0,6}$",
			},

			"daily_start_time": bson.M{
				"bsonType": "string",
				"pattern":  timePattern,
			},

			"daily_end_time": bson.M{
				"bsonType": "string",
				"pattern":  timePattern,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
