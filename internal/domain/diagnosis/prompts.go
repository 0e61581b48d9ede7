package diagnosis

import (
	"fmt"
	"strings"
)

// BMINotProvided is substituted into the exercise-prescription template when
// height or weight is missing. The templates are fixed-format text blocks
// that expect a value at that position, so the field is never omitted.
const BMINotProvided = "not provided"

// BMIString computes body mass index from height in centimeters and weight
// in kilograms, formatted to two decimal places.
func BMIString(height, weight *float64) string {
	if height == nil || weight == nil || *height <= 0 {
		return BMINotProvided
	}
	m := *height / 100
	return fmt.Sprintf("%.2f", *weight/(m*m))
}

// Templates holds the four stage prompt templates. They are injected into
// the PromptBuilder at construction time so tests can swap in deterministic
// ones. Placeholders are positional fmt verbs; see the render methods for
// the argument order each template expects.
type Templates struct {
	MedicalRecord        string
	SyndromeInference    string
	Prescription         string
	ExercisePrescription string
}

// DefaultTemplates returns the production prompt set.
func DefaultTemplates() Templates {
	return Templates{
		MedicalRecord: strings.TrimSpace(`
You are an experienced traditional Chinese medicine physician. Based on the
consultation transcript and the pre-visit conversation below, write a
structured medical record covering chief complaint, history of present
illness, tongue and pulse findings if mentioned, and relevant history.
Write only what the material supports; mark missing items as not recorded.

Pre-visit conversation:
%[2]s

Consultation transcript:
%[1]s

Wrap the finished medical record in <answer></answer> tags.`),

		SyndromeInference: strings.TrimSpace(`
You are an experienced traditional Chinese medicine physician. Determine the
syndrome pattern (zheng) for the patient described by the medical record
below. Reason step by step inside <think></think> tags, weighing the
presenting signs against the candidate patterns, then state the single most
fitting pattern name.

Medical record:
%[1]s

Wrap your reasoning in <think></think> tags and the final pattern name in
<answer></answer> tags.`),

		Prescription: strings.TrimSpace(`
You are an experienced traditional Chinese medicine physician. Compose a
herbal prescription for the patient below. List each herb with its dosage in
grams, then give brief preparation and administration instructions.

Medical record:
%[1]s

Syndrome pattern:
%[2]s

Wrap the complete prescription in <answer></answer> tags.`),

		ExercisePrescription: strings.TrimSpace(`
You are an experienced traditional Chinese medicine physician and exercise
rehabilitation specialist. Design a weekly exercise prescription suited to
the patient below, naming concrete activities (such as baduanjin, taijiquan
or walking), session duration, weekly frequency and intensity, with any
precautions the pattern calls for.

Medical record:
%[1]s

Syndrome pattern:
%[2]s

Body mass index: %[3]s

Wrap the complete exercise prescription in <answer></answer> tags.`),
	}
}

// PromptBuilder renders the stage prompts. It holds no mutable state and is
// safe to share across concurrent requests.
type PromptBuilder struct {
	t Templates
}

func NewPromptBuilder(t Templates) *PromptBuilder {
	return &PromptBuilder{t: t}
}

// MedicalRecord renders the stage 1 prompt from the raw transcript and the
// prior conversation log.
func (b *PromptBuilder) MedicalRecord(transcript, priorLog string) string {
	if strings.TrimSpace(priorLog) == "" {
		priorLog = "(none)"
	}
	return fmt.Sprintf(b.t.MedicalRecord, transcript, priorLog)
}

// SyndromeInference renders the stage 2 prompt from stage 1's output.
func (b *PromptBuilder) SyndromeInference(record string) string {
	return fmt.Sprintf(b.t.SyndromeInference, record)
}

// Prescription renders the stage 3 prompt from stages 1 and 2.
func (b *PromptBuilder) Prescription(record, syndrome string) string {
	return fmt.Sprintf(b.t.Prescription, record, syndrome)
}

// ExercisePrescription renders the stage 4 prompt from stages 1 and 2 plus
// the computed BMI string.
func (b *PromptBuilder) ExercisePrescription(record, syndrome string, height, weight *float64) string {
	return fmt.Sprintf(b.t.ExercisePrescription, record, syndrome, BMIString(height, weight))
}
