package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/diagnostic-versions/internal/model"
)

func sampleTemplate() Template {
	return Template{
		Questions: []model.VersionQuestion{
			{QCode: "Q1", DisplayText: "Do you like AI?", Multi: false, SortOrder: 1, IsActive: true},
		},
		Options: []model.VersionOption{
			{QCode: "Q1", OptCode: "Y", DisplayLabel: "Yes", SortOrder: 1, IsActive: true},
			{QCode: "Q1", OptCode: "N", DisplayLabel: "No", SortOrder: 2, IsActive: false,
				LLMOp: map[string]any{"tag": "neg", "weight": 2}},
		},
		OutcomeHeaders: outcomeHeaders,
		Outcomes: [][]any{
			OutcomeCells(outcomeHeaders, map[string]any{
				"name": "Engineer", "description": nil, "sort_order": 1, "is_active": true,
			}),
		},
	}
}

func TestExport_SheetsAndHeaders(t *testing.T) {
	content, err := Export(sampleTemplate())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(content)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, Questions, f.Sheets[0].Name)
	assert.Equal(t, Options, f.Sheets[1].Name)
	assert.Equal(t, Outcomes, f.Sheets[2].Name)

	opts := grid(f.Sheet[Options])
	assert.Equal(t, OptionHeaders, opts[0])
	assert.Equal(t, []string{"Q1", "N", "No", "2", `{"tag":"neg","weight":2}`, "0"}, opts[2])
}

func TestExport_RoundTripsThroughParse(t *testing.T) {
	content, err := Export(sampleTemplate())
	require.NoError(t, err)

	batch, err := Parse(content)
	require.NoError(t, err)

	require.Len(t, batch.Questions, 1)
	assert.Equal(t, "Q1", batch.Questions[0].QCode)
	assert.True(t, batch.Questions[0].IsActive)

	require.Len(t, batch.Options, 2)
	assert.Equal(t, "N", batch.Options[1].OptCode)
	assert.False(t, batch.Options[1].IsActive)
	assert.Equal(t, "neg", batch.Options[1].LLMOp["tag"])

	require.Len(t, batch.Outcomes, 1)
	assert.Equal(t, "Engineer", batch.Outcomes[0].Values["name"])
	assert.Equal(t, "1", batch.Outcomes[0].Values["is_active"])
	_, hasDescription := batch.Outcomes[0].Values["description"]
	assert.False(t, hasDescription)
}

func TestOutcomeCells(t *testing.T) {
	cells := OutcomeCells([]string{"name", "is_active", "missing"}, map[string]any{
		"name": "Engineer", "is_active": "yes",
	})
	assert.Equal(t, []any{"Engineer", 1, nil}, cells)
}
