package diagnosis

import "testing"

func TestExtract_FirstMatchTrimmed(t *testing.T) {
	text := "preamble <answer>  Spleen qi deficiency  </answer> trailing <answer>second</answer>"
	out, ok := Extract(text, "answer")
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "Spleen qi deficiency" {
		t.Errorf("got %q", out)
	}
}

func TestExtract_CaseInsensitiveAcrossNewlines(t *testing.T) {
	text := "<ANSWER>line one\nline two</Answer>"
	out, ok := Extract(text, "answer")
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "line one\nline two" {
		t.Errorf("got %q", out)
	}
}

func TestExtract_NoMatch(t *testing.T) {
	out, ok := Extract("no tags here", "answer")
	if ok {
		t.Errorf("expected no match, got %q", out)
	}
}

func TestExtractAnswer_FallsBackToFullText(t *testing.T) {
	out, tagged := ExtractAnswer("  the model forgot its tags  ")
	if tagged {
		t.Error("expected tagged=false")
	}
	if out != "the model forgot its tags" {
		t.Errorf("got %q", out)
	}
}

func TestExtractAnswer_Tagged(t *testing.T) {
	out, tagged := ExtractAnswer("<answer>ginseng 9g</answer>")
	if !tagged {
		t.Error("expected tagged=true")
	}
	if out != "ginseng 9g" {
		t.Errorf("got %q", out)
	}
}

func TestExtractThink_AbsentWithoutFallback(t *testing.T) {
	out, ok := ExtractThink("<answer>pattern</answer>")
	if ok {
		t.Errorf("expected absent, got %q", out)
	}
}

func TestExtractThink_Present(t *testing.T) {
	out, ok := ExtractThink("<think>pale tongue suggests deficiency</think><answer>x</answer>")
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "pale tongue suggests deficiency" {
		t.Errorf("got %q", out)
	}
}
