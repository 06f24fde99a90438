package model

import "time"

type Doctor struct {
	ID                  string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Slug                string    `json:"slug" bson:"slug" validate:"required,min=2,max=100,slug"`
	Name                string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Specialty           string    `json:"specialty,omitempty" bson:"specialty" validate:"omitempty,max=100"`
	ExaminationDuration int       `json:"examination_duration" bson:"examination_duration" validate:"required,min=5,max=480"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type DoctorUpdate struct {
	Name                string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Specialty           string `json:"specialty,omitempty" validate:"omitempty,max=100"`
	ExaminationDuration *int   `json:"examination_duration,omitempty" validate:"omitempty,min=5,max=480"`
}

type DoctorSummary struct {
	ID                  string `json:"id"`
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	Specialty           string `json:"specialty,omitempty"`
	ExaminationDuration int    `json:"examination_duration"`
}

func (d *Doctor) Summary() DoctorSummary {
	return DoctorSummary{
		ID:                  d.ID,
		Slug:                d.Slug,
		Name:                d.Name,
		Specialty:           d.Specialty,
		ExaminationDuration: d.ExaminationDuration,
	}
}
