package diagnosis

import (
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestBMIString(t *testing.T) {
	tests := []struct {
		name   string
		height *float64
		weight *float64
		want   string
	}{
		{"both present", f64(170), f64(68), "23.53"},
		{"missing height", nil, f64(68), BMINotProvided},
		{"missing weight", f64(170), nil, BMINotProvided},
		{"both missing", nil, nil, BMINotProvided},
		{"zero height", f64(0), f64(68), BMINotProvided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BMIString(tt.height, tt.weight); got != tt.want {
				t.Errorf("BMIString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptBuilder_ExercisePrescription_BMISubstitution(t *testing.T) {
	b := NewPromptBuilder(DefaultTemplates())

	p := b.ExercisePrescription("record", "pattern", nil, f64(68))
	if !strings.Contains(p, BMINotProvided) {
		t.Error("expected the not-provided placeholder in the rendered prompt")
	}

	p = b.ExercisePrescription("record", "pattern", f64(170), f64(68))
	if !strings.Contains(p, "23.53") {
		t.Errorf("expected computed BMI in prompt, got:\n%s", p)
	}
}

func TestPromptBuilder_StageInputsAppear(t *testing.T) {
	b := NewPromptBuilder(DefaultTemplates())

	p := b.MedicalRecord("patient reports fatigue", "previously mentioned poor sleep")
	if !strings.Contains(p, "patient reports fatigue") || !strings.Contains(p, "previously mentioned poor sleep") {
		t.Errorf("transcript or prior log missing from prompt:\n%s", p)
	}

	p = b.MedicalRecord("transcript only", "")
	if !strings.Contains(p, "(none)") {
		t.Error("expected empty prior log to render as (none)")
	}

	p = b.SyndromeInference("the formatted record")
	if !strings.Contains(p, "the formatted record") {
		t.Error("record missing from syndrome-inference prompt")
	}

	p = b.Prescription("the record", "liver qi stagnation")
	if !strings.Contains(p, "the record") || !strings.Contains(p, "liver qi stagnation") {
		t.Error("inputs missing from prescription prompt")
	}
}

func TestPromptBuilder_InjectedTemplates(t *testing.T) {
	b := NewPromptBuilder(Templates{
		MedicalRecord:        "T=%[1]s L=%[2]s",
		SyndromeInference:    "R=%[1]s",
		Prescription:         "R=%[1]s S=%[2]s",
		ExercisePrescription: "R=%[1]s S=%[2]s B=%[3]s",
	})
	if got := b.ExercisePrescription("r", "s", f64(175), f64(85)); got != "R=r S=s B=27.76" {
		t.Errorf("got %q", got)
	}
}
