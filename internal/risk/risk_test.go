package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/model"
)

func TestHeuristic_Assess(t *testing.T) {
	tests := []struct {
		name        string
		description string
		level       string
		flags       []string
	}{
		{"copy change", "Change the header colour on the cameras page", model.RiskLow, []string{}},
		{"integration", "Send an email when a webhook arrives", model.RiskMedium, []string{"email", "webhook"}},
		{"sensitive", "Let staff reset a resident password from the vault", model.RiskHigh, []string{"password", "vault"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Heuristic{}.Assess(context.Background(), tt.description)
			require.NoError(t, err)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.flags, got.Flags)
			assert.NotEmpty(t, got.Summary)
		})
	}
}

func TestParseAssessment(t *testing.T) {
	got, err := parseAssessment("```json\n{\"level\": \"HIGH\", \"summary\": \"Changes roles\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, got.Level)
	assert.Equal(t, []string{}, got.Flags)

	_, err = parseAssessment(`{"level": "extreme"}`)
	assert.Error(t, err)

	_, err = parseAssessment("not json")
	assert.Error(t, err)
}

func TestNew_WithoutKeyUsesHeuristic(t *testing.T) {
	assert.IsType(t, Heuristic{}, New(context.Background(), "", ""))
}
