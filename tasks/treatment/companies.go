package treatment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/parse"
)

// CompanyMapping maps one original employer to its per-treatment
// replacements.
type CompanyMapping struct {
	OriginalCompany string
	Replacements    map[string]string
}

// MappingReviewer approves or edits the proposed mappings before they are
// applied. The study's operators review these by hand; AutoAccept is the
// non-interactive default.
type MappingReviewer interface {
	Review(ctx context.Context, proposed []CompanyMapping) ([]CompanyMapping, error)
}

// AutoAccept passes mappings through unreviewed.
type AutoAccept struct{}

func (AutoAccept) Review(_ context.Context, proposed []CompanyMapping) ([]CompanyMapping, error) {
	return proposed, nil
}

type companyMappingWire struct {
	OriginalCompany  string              `json:"Original_company"`
	SimilarCompanies []map[string]string `json:"Similar companies"`
}

// DecodeCompanyMappings parses the research model's response: a JSON array
// of {Original_company, Similar companies: [{Type_I: …}, …]} objects, with
// the usual fence wrapping.
func DecodeCompanyMappings(raw string) ([]CompanyMapping, error) {
	stripped := parse.StripFences(raw)
	if stripped == "" {
		return nil, fmt.Errorf("empty company mapping response")
	}
	var wire []companyMappingWire
	if err := json.Unmarshal([]byte(stripped), &wire); err != nil {
		return nil, fmt.Errorf("decode company mappings: %w", err)
	}

	mappings := make([]CompanyMapping, 0, len(wire))
	for _, entry := range wire {
		if entry.OriginalCompany == "" {
			continue
		}
		replacements := map[string]string{}
		for _, pair := range entry.SimilarCompanies {
			for treatmentType, replacement := range pair {
				replacements[treatmentType] = replacement
			}
		}
		mappings = append(mappings, CompanyMapping{
			OriginalCompany: entry.OriginalCompany,
			Replacements:    replacements,
		})
	}
	return mappings, nil
}

// CompanyPairs lists the employers and locations of the resume's work
// history for the research prompt.
func CompanyPairs(resumeData map[string]any) []map[string]any {
	var pairs []map[string]any
	jobs, ok := resumeData["work_experience"].([]any)
	if !ok {
		return pairs
	}
	for _, entry := range jobs {
		job, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		company, _ := job["company"].(string)
		location, _ := job["location"].(string)
		if company == "" && location == "" {
			continue
		}
		pairs = append(pairs, map[string]any{"company": company, "location": location})
	}
	return pairs
}

// ReplaceCompanies swaps each work-experience employer for the replacement
// assigned to the treatment type. Matching is case-insensitive; companies
// without a mapping keep their original name. The input is not mutated.
func ReplaceCompanies(resumeData map[string]any, mappings []CompanyMapping, treatmentType string) map[string]any {
	if len(resumeData) == 0 || len(mappings) == 0 {
		return resumeData
	}

	lookup := map[string]string{}
	for _, mapping := range mappings {
		replacement, ok := mapping.Replacements[treatmentType]
		if !ok {
			continue
		}
		lookup[strings.ToLower(mapping.OriginalCompany)] = replacement
	}

	replaced := deepCopyMap(resumeData)
	jobs, ok := replaced["work_experience"].([]any)
	if !ok {
		return replaced
	}
	for _, entry := range jobs {
		job, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		company, _ := job["company"].(string)
		if replacement, found := lookup[strings.ToLower(company)]; found {
			job["company"] = replacement
		}
	}
	return replaced
}

func deepCopyMap(source map[string]any) map[string]any {
	copied := make(map[string]any, len(source))
	for key, value := range source {
		copied[key] = deepCopyValue(value)
	}
	return copied
}

func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		copied := make([]any, len(typed))
		for index, element := range typed {
			copied[index] = deepCopyValue(element)
		}
		return copied
	default:
		return typed
	}
}
