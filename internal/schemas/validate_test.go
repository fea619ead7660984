package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

func objections(n int) []types.Objection {
	out := make([]types.Objection, n)
	for i := range out {
		out[i] = types.Objection{Objection: "We already have a POS", Response: "Migration is free"}
	}
	return out
}

func TestValidateStage(t *testing.T) {
	tests := []struct {
		name       string
		stage      Stage
		value      any
		wantFields []string
	}{
		{
			name:  "valid profile",
			stage: StageProfile,
			value: types.ProspectProfile{Name: "Jumbo Seafood", Rating: 4.4, DigitalMaturity: "High", FranchiseStatus: "Chain"},
		},
		{
			name:       "profile with unknown maturity",
			stage:      StageProfile,
			value:      types.ProspectProfile{Name: "Jumbo Seafood", DigitalMaturity: "Unknown"},
			wantFields: []string{"digitalMaturity"},
		},
		{
			name:       "profile without name",
			stage:      StageProfile,
			value:      types.ProspectProfile{Description: "Seafood"},
			wantFields: []string{"(root)"},
		},
		{
			name:  "valid insights",
			stage: StageInsights,
			value: types.BusinessInsights{
				KeyStrengths:      []string{"Chilli crab"},
				CustomerSentiment: &types.CustomerSentiment{Overall: 4.1, Food: 4.5, Service: 3.8, Ambiance: 4},
			},
		},
		{
			name:  "sentiment out of range",
			stage: StageInsights,
			value: types.BusinessInsights{
				CustomerSentiment: &types.CustomerSentiment{Overall: 9},
			},
			wantFields: []string{"customerSentiment.overall"},
		},
		{
			name:  "valid sales tools",
			stage: StageSalesTools,
			value: types.SalesTools{
				ConversationStarters: []string{"How do you handle the lunch rush?"},
				PotentialObjections:  objections(types.MinObjections),
				ValuePropositions:    []string{"Faster table turns"},
			},
		},
		{
			name:  "too few objections",
			stage: StageSalesTools,
			value: types.SalesTools{
				ConversationStarters: []string{"Hi"},
				PotentialObjections:  objections(2),
				ValuePropositions:    []string{"Faster table turns"},
			},
			wantFields: []string{"potentialObjections"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStage(tt.stage, tt.value)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError, got %T", err)
			assert.Subset(t, validationErr.Fields(), tt.wantFields)
		})
	}
}

func TestValidateStage_UnknownStage(t *testing.T) {
	err := ValidateStage(Stage("menu"), map[string]any{})
	require.Error(t, err)

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "error should be SchemaLoadError, got %T", err)
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"age": 30}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSONString_MalformedSchema(t *testing.T) {
	err := ValidateJSONString(`{ not a schema`, `{}`)
	require.Error(t, err)

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "rating", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "1. name: is required")
	assert.Contains(t, errorMsg, "2. rating: must be a number")
	assert.Equal(t, []string{"name", "rating"}, err.Fields())
}
