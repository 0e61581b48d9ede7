package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit maps to the visit table. A visit is one consultation episode for a
// patient; diagnosis runs attach to it.
type Visit struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID    *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Intake maps to the visit_intake table: the pre-visit questionnaire data
// collected before the consultation. Height is in centimeters, weight in
// kilograms. ConversationLog holds the pre-visit conversational transcript
// that seeds the medical-record prompt.
type Intake struct {
	ID              uuid.UUID `db:"id" json:"id"`
	VisitID         uuid.UUID `db:"visit_id" json:"visit_id"`
	HeightCM        *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG        *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	ChiefComplaint  *string   `db:"chief_complaint" json:"chief_complaint,omitempty"`
	ConversationLog string    `db:"conversation_log" json:"conversation_log"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
