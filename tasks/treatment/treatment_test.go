package treatment

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
)

func treatmentTemplate(t *testing.T) prompt.Template {
	t.Helper()
	body := "Rephrase {JSON_resume_object} applying {Treatment_object} as {treatment_type} {style_guide}"
	template, err := prompt.New(body,
		PlaceholderResume, PlaceholderTreatment, PlaceholderTreatmentType, PlaceholderStyleGuide)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	return template
}

func sampleRows(sector string, ids ...string) []Row {
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, Row{"sector": sector, "id": id})
	}
	return rows
}

func TestPrepareTreatmentsComplementaryPicks(t *testing.T) {
	education := sampleRows("ITC", "edu-1", "edu-2", "edu-3")
	work := sampleRows("ITC", "work-1", "work-2", "work-3")
	source := map[string]any{"basics": map[string]any{"summary": "engineer"}}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		prepared, err := PrepareTreatments(education, work, source, treatmentTemplate(t), rng)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(prepared) != 3 {
			t.Fatalf("seed %d: expected 3 versions, got %d", seed, len(prepared))
		}
		if prepared[0].Type != TypeI || prepared[1].Type != TypeII || prepared[2].Type != TypeIII {
			t.Fatalf("seed %d: unexpected order: %v %v %v", seed, prepared[0].Type, prepared[1].Type, prepared[2].Type)
		}

		typeIEducation := prepared[0].TreatmentApplied["Canadian_Education"].(Row)["id"]
		typeIIWork := prepared[1].TreatmentApplied["Canadian_Work_Experience"].(Row)["id"]
		typeIIIEducation := prepared[2].TreatmentApplied["Canadian_Education"].(Row)["id"]
		typeIIIWork := prepared[2].TreatmentApplied["Canadian_Work_Experience"].(Row)["id"]
		if typeIEducation == typeIIIEducation {
			t.Fatalf("seed %d: Type_III must use the other education treatment", seed)
		}
		if typeIIWork == typeIIIWork {
			t.Fatalf("seed %d: Type_III must use the other work treatment", seed)
		}

		styles := map[string]bool{
			prepared[0].StyleGuide: true,
			prepared[1].StyleGuide: true,
			prepared[2].StyleGuide: true,
		}
		if len(styles) != 3 {
			t.Fatalf("seed %d: style guides must be unique", seed)
		}

		for _, version := range prepared {
			if !strings.Contains(version.Prompt, version.Type) {
				t.Fatalf("seed %d: prompt missing treatment type %s", seed, version.Type)
			}
			if !strings.Contains(version.Prompt, version.StyleGuide) {
				t.Fatalf("seed %d: prompt missing style guide", seed)
			}
		}
	}
}

func TestPrepareTreatmentsNeedsTwoOfEach(t *testing.T) {
	source := map[string]any{}
	rng := rand.New(rand.NewSource(1))
	_, err := PrepareTreatments(sampleRows("ITC", "edu-1"), sampleRows("ITC", "work-1", "work-2"), source, treatmentTemplate(t), rng)
	if err == nil {
		t.Fatalf("expected error with a single education treatment")
	}
}

func TestFilterSector(t *testing.T) {
	rows := append(sampleRows("ITC", "a", "b"), sampleRows("FIN", "c")...)
	filtered := FilterSector(rows, "itc")
	if len(filtered) != 2 {
		t.Fatalf("expected 2 ITC rows, got %d", len(filtered))
	}
}

func TestReplaceCompanies(t *testing.T) {
	resume := map[string]any{
		"work_experience": []any{
			map[string]any{"company": "Acme Corp", "highlights": []any{"built things"}},
			map[string]any{"company": "Unknown LLC"},
		},
	}
	mappings := []CompanyMapping{
		{OriginalCompany: "ACME CORP", Replacements: map[string]string{TypeI: "Maple Co", TypeII: "Birch Inc"}},
	}

	replaced := ReplaceCompanies(resume, mappings, TypeI)

	jobs := replaced["work_experience"].([]any)
	if jobs[0].(map[string]any)["company"] != "Maple Co" {
		t.Fatalf("mapped company must be replaced case-insensitively: %v", jobs[0])
	}
	if jobs[1].(map[string]any)["company"] != "Unknown LLC" {
		t.Fatalf("unmapped company must keep its name: %v", jobs[1])
	}
	if resume["work_experience"].([]any)[0].(map[string]any)["company"] != "Acme Corp" {
		t.Fatalf("input resume must not be mutated")
	}
}

func TestReplaceCompaniesMissingTreatmentType(t *testing.T) {
	resume := map[string]any{
		"work_experience": []any{map[string]any{"company": "Acme Corp"}},
	}
	mappings := []CompanyMapping{
		{OriginalCompany: "Acme Corp", Replacements: map[string]string{TypeII: "Birch Inc"}},
	}
	replaced := ReplaceCompanies(resume, mappings, TypeI)
	if replaced["work_experience"].([]any)[0].(map[string]any)["company"] != "Acme Corp" {
		t.Fatalf("company without a Type_I mapping must keep its name")
	}
}

func TestDecodeCompanyMappings(t *testing.T) {
	raw := "```json\n" + `[
  {"Original_company": "Acme Corp", "Similar companies": [{"Type_I": "Maple Co"}, {"Type_II": "Birch Inc"}]},
  {"Original_company": "", "Similar companies": [{"Type_I": "Dropped"}]}
]` + "\n```"

	mappings, err := DecodeCompanyMappings(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("entries without an original company must be dropped, got %d", len(mappings))
	}
	if mappings[0].Replacements[TypeI] != "Maple Co" || mappings[0].Replacements[TypeII] != "Birch Inc" {
		t.Fatalf("unexpected replacements: %+v", mappings[0].Replacements)
	}
}

func TestDecodeCompanyMappingsBadJSON(t *testing.T) {
	if _, err := DecodeCompanyMappings("{not a list"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCompanyPairs(t *testing.T) {
	resume := map[string]any{
		"work_experience": []any{
			map[string]any{"company": "Acme Corp", "location": "Austin"},
			map[string]any{"company": "Birch Inc"},
			map[string]any{"title": "no company or location"},
		},
	}
	pairs := CompanyPairs(resume)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0]["company"] != "Acme Corp" || pairs[0]["location"] != "Austin" {
		t.Fatalf("unexpected pair: %v", pairs[0])
	}
}

func TestRephrasedText(t *testing.T) {
	resume := map[string]any{
		"basics": map[string]any{"summary": "Seasoned engineer."},
		"work_experience": []any{
			map[string]any{"highlights": []any{"Shipped a platform.", "Cut costs."}},
			map[string]any{"title": "no highlights"},
		},
	}
	text := RephrasedText(resume)
	want := "Seasoned engineer. Shipped a platform. Cut costs."
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
	if RephrasedText(map[string]any{}) != "" {
		t.Fatalf("empty resume must produce empty text")
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors must score 1, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors must score 0, got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector must score 0, got %v", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths must score 0, got %v", got)
	}
}
