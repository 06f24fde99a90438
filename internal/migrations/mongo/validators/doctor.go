package validators

import "go.mongodb.org/mongo-driver/bson"

var DoctorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slug",
			"name",
			"examination_duration",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"slug": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
				"pattern":   "^[a-z0-9]+(?:-[a-z0-9]+)*$",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"specialty": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"examination_duration": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  5,
				"maximum":  480,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
