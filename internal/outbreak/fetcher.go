package outbreak

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/llm"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// Fetcher translates a scope into a prompt for the AI service and decomposes
// the free-text response into structured disease records.
type Fetcher interface {
	FetchDiseaseData(ctx context.Context, stateName string) (*types.DiseaseList, string, error)
}

// GeminiFetcher queries Gemini for current outbreak information.
type GeminiFetcher struct {
	gen llm.Generator
}

func NewGeminiFetcher(gen llm.Generator) *GeminiFetcher {
	return &GeminiFetcher{gen: gen}
}

// FetchDiseaseData fetches the disease list for a state ("" for nationwide).
// Returns the parsed list and the raw model response. A generation failure
// is reported as ErrFetchFailed; an unparseable response degrades to the
// built-in fallback list so the alert pipeline always has content.
func (f *GeminiFetcher) FetchDiseaseData(ctx context.Context, stateName string) (*types.DiseaseList, string, error) {
	prompt := buildPrompt(stateName)

	raw, err := f.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	list, err := parseDiseaseList(raw)
	if err != nil {
		utils.Zlog.Warn("Falling back to built-in disease list",
			zap.String("state", stateName),
			zap.Error(err))
		return &types.DiseaseList{Diseases: FallbackDiseases()}, raw, nil
	}

	return list, raw, nil
}

func buildPrompt(stateName string) string {
	region := "India"
	if stateName != "" {
		region = stateName + ", India"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "List the disease outbreaks currently being reported in %s.\n", region)
	b.WriteString(`Respond ONLY with a JSON object in exactly this shape:
{
  "diseases": [
    {
      "name": "disease name",
      "type": "viral|bacterial|vector-borne|other",
      "riskLevel": "high|medium|low",
      "symptoms": ["..."],
      "safetyMeasures": ["..."],
      "preventionMethods": ["..."],
      "transmission": "how it spreads",
      "affectedLocations": [
        {"name": "city or district", "estimatedCases": "approximate count", "trend": "rising|stable|falling"}
      ]
    }
  ]
}
Include only diseases with active or recent outbreak reports. Do not add any text outside the JSON object.`)
	return b.String()
}

// parseDiseaseList extracts the first balanced {...} block from the response
// and decodes it. The model is not guaranteed to return pure JSON.
func parseDiseaseList(raw string) (*types.DiseaseList, error) {
	block, ok := extractJSONBlock(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrParseFailed)
	}

	var list types.DiseaseList
	if err := json.Unmarshal([]byte(block), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	if len(list.Diseases) == 0 {
		return nil, fmt.Errorf("%w: missing or empty diseases array", ErrParseFailed)
	}

	return &list, nil
}

// extractJSONBlock returns the first balanced top-level {...} block in s.
// Braces inside JSON strings are ignored.
func extractJSONBlock(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// FallbackDiseases is the static last-resort list served when the model
// response cannot be parsed. Keeps the alert pipeline producing actionable
// content at the cost of occasionally serving canned data.
func FallbackDiseases() []types.Disease {
	return []types.Disease{
		{
			Name:              "Dengue",
			Type:              "vector-borne",
			RiskLevel:         "medium",
			Symptoms:          []string{"High fever", "Severe headache", "Joint and muscle pain", "Skin rash"},
			SafetyMeasures:    []string{"Use mosquito repellent", "Wear full-sleeve clothing", "Seek medical care if fever persists"},
			PreventionMethods: []string{"Remove standing water", "Use mosquito nets", "Keep surroundings clean"},
			Transmission:      "Aedes mosquito bites",
		},
		{
			Name:              "Seasonal Flu",
			Type:              "viral",
			RiskLevel:         "low",
			Symptoms:          []string{"Fever", "Cough", "Sore throat", "Body aches", "Fatigue"},
			SafetyMeasures:    []string{"Rest and stay hydrated", "Avoid close contact with others", "Consult a doctor if symptoms worsen"},
			PreventionMethods: []string{"Wash hands frequently", "Get the annual flu vaccine", "Cover coughs and sneezes"},
			Transmission:      "Respiratory droplets",
		},
	}
}
