package outbreak

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthya-labs/arogya-bot/internal/llm"
)

const sampleResponse = "Here is the current outbreak report:\n" +
	`{"diseases":[{"name":"Dengue","riskLevel":"high","symptoms":["fever"],` +
	`"safetyMeasures":["repellent"],"preventionMethods":["remove standing water"],` +
	`"transmission":"mosquito","affectedLocations":[{"name":"Pune","estimatedCases":"1200","trend":"rising"}]}]}` +
	"\nStay safe."

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"pure json", `{"a":1}`, `{"a":1}`, true},
		{"surrounded by prose", `Sure! {"a":{"b":2}} Done.`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"a":"closing } brace"}`, `{"a":"closing } brace"}`, true},
		{"escaped quote in string", `{"a":"say \" { hi"}`, `{"a":"say \" { hi"}`, true},
		{"no object", "nothing here", "", false},
		{"unbalanced", `{"a":1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONBlock(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchDiseaseDataParsesModelOutput(t *testing.T) {
	fetcher := NewGeminiFetcher(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "Maharashtra, India")
		return sampleResponse, nil
	}))

	list, raw, err := fetcher.FetchDiseaseData(context.Background(), "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, sampleResponse, raw)
	require.Len(t, list.Diseases, 1)
	assert.Equal(t, "Dengue", list.Diseases[0].Name)
	assert.Equal(t, "high", list.Diseases[0].RiskLevel)
	require.Len(t, list.Diseases[0].AffectedLocations, 1)
	assert.Equal(t, "Pune", list.Diseases[0].AffectedLocations[0].Name)
}

func TestFetchDiseaseDataFallsBackOnGarbage(t *testing.T) {
	fetcher := NewGeminiFetcher(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "I cannot answer that right now.", nil
	}))

	list, _, err := fetcher.FetchDiseaseData(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list.Diseases, 2)
	assert.Equal(t, "Dengue", list.Diseases[0].Name)
	assert.Equal(t, "Seasonal Flu", list.Diseases[1].Name)
}

func TestFetchDiseaseDataFallsBackOnEmptyDiseases(t *testing.T) {
	fetcher := NewGeminiFetcher(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{"diseases":[]}`, nil
	}))

	list, _, err := fetcher.FetchDiseaseData(context.Background(), "Kerala")
	require.NoError(t, err)
	assert.NotEmpty(t, list.Diseases)
}

func TestFetchDiseaseDataPropagatesGenerationError(t *testing.T) {
	fetcher := NewGeminiFetcher(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("rate limited")
	}))

	_, _, err := fetcher.FetchDiseaseData(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}
