package treatment

import (
	"encoding/json"
	"errors"
	"math/rand"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
)

// Treatment type labels as they appear in the persisted documents.
const (
	TypeControl = "control"
	TypeI       = "Type_I"
	TypeII      = "Type_II"
	TypeIII     = "Type_III"
)

// Placeholders of the treatment generation prompt.
const (
	PlaceholderResume        = "JSON_resume_object"
	PlaceholderTreatment     = "Treatment_object"
	PlaceholderTreatmentType = "treatment_type"
	PlaceholderStyleGuide    = "style_guide"
	PlaceholderCompanyNames  = "company_names"
)

// StyleModifiers are the canonical rephrasing instructions. Each treated
// version gets a different one so the three generations do not read
// identically.
var StyleModifiers = []string{
	"using strong, action-oriented verbs and focusing on quantifiable outcomes",
	"using a direct, concise, and professional tone, prioritizing clarity and brevity",
	"by emphasizing collaborative efforts and cross-functional teamwork",
	"by describing the technical aspects of the work with more precision and detail",
	"by framing the accomplishments as a narrative of challenges, actions, and results",
}

// Prepared is one treated version ready for generation: the fully rendered
// prompt plus the audit fields that ride into the saved document.
type Prepared struct {
	Type             string
	Prompt           string
	StyleGuide       string
	TreatmentApplied map[string]any
}

var (
	errNoTreatments      = errors.New("no treatments available for sector")
	errTooFewTreatments  = errors.New("need at least two education and two work treatments")
	errTooFewStyleGuides = errors.New("need at least three style modifiers")
)

// PrepareTreatments samples the treatments and styles for one resume and
// renders the three treated prompts. Type_I gets one of the two sampled
// education treatments, Type_II one of the two work treatments, and Type_III
// the complementary pair, so no treatment repeats within a resume set.
func PrepareTreatments(
	education []Row,
	work []Row,
	sourceResume map[string]any,
	template prompt.Template,
	rng *rand.Rand,
) ([]Prepared, error) {
	if len(education) == 0 || len(work) == 0 {
		return nil, errNoTreatments
	}
	if len(education) < 2 || len(work) < 2 {
		return nil, errTooFewTreatments
	}
	if len(StyleModifiers) < 3 {
		return nil, errTooFewStyleGuides
	}

	educationPair := samplePair(education, rng)
	workPair := samplePair(work, rng)
	styles := sampleStyles(rng, 3)

	resumeJSON, resumeErr := encodeValue(sourceResume)
	if resumeErr != nil {
		return nil, resumeErr
	}

	educationIndex := rng.Intn(2)
	workIndex := rng.Intn(2)

	typeI, typeIErr := render(template, resumeJSON, educationPair[educationIndex], TypeI, styles[0])
	if typeIErr != nil {
		return nil, typeIErr
	}
	typeI.TreatmentApplied = map[string]any{"Canadian_Education": educationPair[educationIndex]}

	typeII, typeIIErr := render(template, resumeJSON, workPair[workIndex], TypeII, styles[1])
	if typeIIErr != nil {
		return nil, typeIIErr
	}
	typeII.TreatmentApplied = map[string]any{"Canadian_Work_Experience": workPair[workIndex]}

	// The complementary picks keep Type_III's additions distinct from the
	// single-treatment versions.
	otherEducation := educationPair[1-educationIndex]
	otherWork := workPair[1-workIndex]
	mixedPayload := map[string]any{
		"task": "ADD_EDUCATION_AND_EXPERIENCE",
		"payload": map[string]any{
			"education":  otherEducation,
			"experience": otherWork,
		},
	}
	typeIII, typeIIIErr := render(template, resumeJSON, mixedPayload, TypeIII, styles[2])
	if typeIIIErr != nil {
		return nil, typeIIIErr
	}
	typeIII.TreatmentApplied = map[string]any{
		"Canadian_Education":       otherEducation,
		"Canadian_Work_Experience": otherWork,
	}

	return []Prepared{typeI, typeII, typeIII}, nil
}

func render(template prompt.Template, resumeJSON string, treatmentValue any, treatmentType string, styleGuide string) (Prepared, error) {
	treatmentJSON, encodeErr := encodeValue(treatmentValue)
	if encodeErr != nil {
		return Prepared{}, encodeErr
	}
	rendered, renderErr := template.Render(map[string]string{
		PlaceholderResume:        resumeJSON,
		PlaceholderTreatment:     treatmentJSON,
		PlaceholderTreatmentType: treatmentType,
		PlaceholderStyleGuide:    styleGuide,
	})
	if renderErr != nil {
		return Prepared{}, renderErr
	}
	return Prepared{Type: treatmentType, Prompt: rendered, StyleGuide: styleGuide}, nil
}

// samplePair draws two distinct rows.
func samplePair(rows []Row, rng *rand.Rand) [2]Row {
	first := rng.Intn(len(rows))
	second := rng.Intn(len(rows) - 1)
	if second >= first {
		second++
	}
	return [2]Row{rows[first], rows[second]}
}

func sampleStyles(rng *rand.Rand, count int) []string {
	indexes := rng.Perm(len(StyleModifiers))
	styles := make([]string, 0, count)
	for _, index := range indexes[:count] {
		styles = append(styles, StyleModifiers[index])
	}
	return styles
}

func encodeValue(value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
