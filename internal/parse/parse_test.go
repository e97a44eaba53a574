package parse_test

import (
	"testing"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/parse"
)

func TestParse_FencedJSON(t *testing.T) {
	res := parse.Parse("```json\n{\"validation_score\": 8}\n```")
	if res.Classification != parse.Valid {
		t.Fatalf("classification = %s, want valid", res.Classification)
	}
	score, ok := res.Parsed["validation_score"].(float64)
	if !ok || score != 8 {
		t.Fatalf("validation_score = %v, want 8", res.Parsed["validation_score"])
	}
}

func TestParse_BareFence(t *testing.T) {
	res := parse.Parse("```\n{\"a\": 1}\n```")
	if res.Classification != parse.Valid {
		t.Fatalf("classification = %s, want valid", res.Classification)
	}
}

func TestParse_EmptyString(t *testing.T) {
	res := parse.Parse("")
	if res.Classification != parse.Empty {
		t.Fatalf("classification = %s, want empty", res.Classification)
	}
	if res.Parsed != nil {
		t.Fatalf("parsed = %v, want nil", res.Parsed)
	}
}

func TestParse_WhitespaceOnly(t *testing.T) {
	res := parse.Parse("   \n\t ")
	if res.Classification != parse.Empty {
		t.Fatalf("classification = %s, want empty", res.Classification)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	res := parse.Parse("{not valid json")
	if res.Classification != parse.Malformed {
		t.Fatalf("classification = %s, want malformed", res.Classification)
	}
	if res.Err == nil {
		t.Fatal("expected decode error to be retained")
	}
	if res.Stripped != "{not valid json" {
		t.Fatalf("stripped = %q, want original text retained", res.Stripped)
	}
}

func TestParse_FenceStrippingIdempotent(t *testing.T) {
	inner := "{\"k\": \"v\"}"
	fenced := "```json\n" + inner + "\n```"

	direct := parse.Parse(inner)
	stripped := parse.Parse(parse.StripFences(fenced))
	if direct.Classification != stripped.Classification {
		t.Fatalf("classification mismatch: %s vs %s", direct.Classification, stripped.Classification)
	}
	if direct.Parsed["k"] != stripped.Parsed["k"] {
		t.Fatalf("parsed mismatch: %v vs %v", direct.Parsed, stripped.Parsed)
	}
}

func TestStripFences_SinglePass(t *testing.T) {
	doubly := "```json\n```json\n{}\n```\n```"
	got := parse.StripFences(doubly)
	want := "```json\n{}"
	if got != want {
		t.Fatalf("StripFences(%q) = %q, want %q (inner fence must survive)", doubly, got, want)
	}
}

func TestParse_NonObjectJSON(t *testing.T) {
	res := parse.Parse("[1, 2, 3]")
	if res.Classification != parse.Malformed {
		t.Fatalf("classification = %s, want malformed for non-object payload", res.Classification)
	}
}
