package diagnosis

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageError   StageStatus = "error"
	StageSkipped StageStatus = "skipped"
)

// OverallStatus is derived from the per-stage outcomes, never set directly.
// Prescription is the primary clinical deliverable, so its stage is the pivot:
// an exercise-prescription failure alone only downgrades to partial_success.
type OverallStatus string

const (
	OverallSuccess        OverallStatus = "success"
	OverallPartialSuccess OverallStatus = "partial_success"
	OverallFailed         OverallStatus = "failed"
)

// Stage identifiers, in pipeline order.
const (
	StageMedicalRecord        = "medical_record"
	StageSyndromeInference    = "diagnosis"
	StagePrescription         = "prescription"
	StageExercisePrescription = "exercise_prescription"
)

// StageResult is the outcome of one stage invocation. It is constructed once
// by the orchestrator and never mutated afterwards.
type StageResult struct {
	Status          StageStatus `json:"status"`
	ExtractedOutput string      `json:"extracted_output,omitempty"`
	Explanation     string      `json:"explanation,omitempty"`
	RawModelText    string      `json:"raw_model_text,omitempty"`
	ProcessingTime  float64     `json:"processing_time_seconds"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	SkipReason      string      `json:"skip_reason,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Input carries the material a diagnosis request starts from. Height (cm),
// weight (kg) and the prior conversation log come from the visit's pre-visit
// intake and are all optional.
type Input struct {
	Transcript string
	Height     *float64
	Weight     *float64
	PriorLog   string
}

// PipelineResult aggregates the four stage results for one request.
type PipelineResult struct {
	InputTranscript string   `json:"input_transcript"`
	Height          *float64 `json:"height,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	PriorLog        string   `json:"prior_conversation_log,omitempty"`

	MedicalRecord        StageResult `json:"medical_record"`
	SyndromeInference    StageResult `json:"syndrome_inference"`
	Prescription         StageResult `json:"prescription"`
	ExercisePrescription StageResult `json:"exercise_prescription"`

	OverallStatus       OverallStatus `json:"overall_status"`
	TotalProcessingTime float64       `json:"total_processing_time_seconds"`
}

// CompletePayload is the flattened terminal event body for a streamed run.
// It carries every extracted field, so the persistence bridge can save a
// record without re-running anything.
type CompletePayload struct {
	Status                 OverallStatus `json:"status"`
	TotalProcessingTime    float64       `json:"total_processing_time"`
	FormattedMedicalRecord string        `json:"formatted_medical_record"`
	TypeInference          string        `json:"type_inference"`
	DiagnosisExplanation   string        `json:"diagnosis_explanation"`
	Prescription           string        `json:"prescription"`
	ExercisePrescription   string        `json:"exercise_prescription"`
}

// completePayload projects a finished pipeline run into the terminal event
// shape.
func (r *PipelineResult) completePayload() CompletePayload {
	return CompletePayload{
		Status:                 r.OverallStatus,
		TotalProcessingTime:    r.TotalProcessingTime,
		FormattedMedicalRecord: r.MedicalRecord.ExtractedOutput,
		TypeInference:          r.SyndromeInference.ExtractedOutput,
		DiagnosisExplanation:   r.SyndromeInference.Explanation,
		Prescription:           r.Prescription.ExtractedOutput,
		ExercisePrescription:   r.ExercisePrescription.ExtractedOutput,
	}
}

// Record is a persisted diagnosis result, one row per completed pipeline run.
type Record struct {
	ID                     uuid.UUID     `json:"id"`
	VisitID                uuid.UUID     `json:"visit_id"`
	FormattedMedicalRecord string        `json:"formatted_medical_record"`
	TypeInference          string        `json:"type_inference"`
	DiagnosisExplanation   string        `json:"diagnosis_explanation,omitempty"`
	Prescription           string        `json:"prescription"`
	ExercisePrescription   string        `json:"exercise_prescription"`
	OverallStatus          OverallStatus `json:"overall_status"`
	ModelName              string        `json:"model_name"`
	ResponseTime           float64       `json:"response_time"`
	CreatedAt              time.Time     `json:"created_at"`
}
