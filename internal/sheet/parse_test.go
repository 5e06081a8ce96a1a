package sheet

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
)

var outcomeHeaders = []string{"name", "description", "sort_order", "is_active"}

func buildWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range []string{Questions, Options, Outcomes, "notes"} {
		rows, ok := sheets[name]
		if !ok {
			continue
		}
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func validSheets() map[string][][]string {
	return map[string][][]string{
		Questions: {
			QuestionHeaders,
			{"Q1", "Do you like AI?", "0", "1", "1"},
		},
		Options: {
			OptionHeaders,
			{"Q1", "Y", "Yes", "1", "", "1"},
			{"Q1", "N", "No", "2", `{"weight": 2, "tag": "neg"}`, "1"},
		},
		Outcomes: {
			outcomeHeaders,
			{"Engineer", "Builds things", "1", "1"},
		},
	}
}

func assertCells(t *testing.T, err error, kind apperr.Kind, cells ...string) {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, cells, e.Cells)
}

func TestParse_Valid(t *testing.T) {
	batch, err := Parse(buildWorkbook(t, validSheets()))
	require.NoError(t, err)

	require.Len(t, batch.Questions, 1)
	q := batch.Questions[0]
	assert.Equal(t, "Q1", q.QCode)
	assert.Equal(t, "Do you like AI?", q.DisplayText)
	assert.False(t, q.Multi)
	assert.Equal(t, 1, q.SortOrder)
	assert.True(t, q.IsActive)
	assert.Equal(t, 2, q.Row)

	require.Len(t, batch.Options, 2)
	assert.Equal(t, "Y", batch.Options[0].OptCode)
	assert.Nil(t, batch.Options[0].LLMOp)
	assert.Equal(t, "N", batch.Options[1].OptCode)
	assert.Equal(t, json.Number("2"), batch.Options[1].LLMOp["weight"])
	assert.Equal(t, "neg", batch.Options[1].LLMOp["tag"])
	assert.Equal(t, 3, batch.Options[1].Row)

	assert.Equal(t, outcomeHeaders, batch.OutcomeHeaders)
	require.Len(t, batch.Outcomes, 1)
	assert.Equal(t, map[string]string{
		"name":        "Engineer",
		"description": "Builds things",
		"sort_order":  "1",
		"is_active":   "1",
	}, batch.Outcomes[0].Values)
	assert.Equal(t, 2, batch.Outcomes[0].Row)
	assert.Empty(t, batch.Warnings)
}

func TestParse_NotAWorkbook(t *testing.T) {
	_, err := Parse([]byte("q_code,display_text\nQ1,hello\n"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindImportValidation, apperr.KindOf(err))
}

func TestParse_MissingSheets(t *testing.T) {
	sheets := validSheets()
	delete(sheets, Options)
	delete(sheets, Outcomes)

	_, err := Parse(buildWorkbook(t, sheets))
	assertCells(t, err, apperr.KindSheetMissing, "options!A1", "outcomes!A1")
	assert.Contains(t, err.Error(), "options, outcomes")
}

func TestParse_HeaderMismatch(t *testing.T) {
	sheets := validSheets()
	sheets[Questions][0] = []string{"q_code", "text", "multi", "sort_order"}

	_, err := Parse(buildWorkbook(t, sheets))
	assertCells(t, err, apperr.KindColumnsMissing, "questions!B1", "questions!E1")
}

func TestParse_QuestionCellErrors(t *testing.T) {
	sheets := validSheets()
	sheets[Questions] = [][]string{
		QuestionHeaders,
		{"Q1", "ok", "maybe", "1", "1"},
		{"", "no code", "0", "2", "1"},
		{"Q3", "bad sort", "0", "two", "1"},
		{"Q1", "duplicate", "0", "4", "1"},
		{"", "", "", "", ""},
	}

	_, err := Parse(buildWorkbook(t, sheets))
	assertCells(t, err, apperr.KindImportValidation,
		"questions!C2", "questions!A3", "questions!D4", "questions!A5")
}

func TestParse_OptionCellErrors(t *testing.T) {
	sheets := validSheets()
	sheets[Options] = [][]string{
		OptionHeaders,
		{"Q1", "Y", "Yes", "1", "[1,2]", "1"},
		{"Q1", "", "blank code", "2", "", "1"},
		{"Q1", "N", "No", "1", "", "sometimes"},
		{"Q1", "Y", "again", "3", "", "1"},
	}

	_, err := Parse(buildWorkbook(t, sheets))
	assertCells(t, err, apperr.KindImportValidation,
		"options!E2", "options!B3", "options!D4", "options!F4", "options!B5")
}

func TestParse_FullWidthCodes(t *testing.T) {
	sheets := validSheets()
	sheets[Questions][1] = []string{"Ｑ１", "Do you like AI?", "FALSE", "１", "Yes"}
	sheets[Options] = [][]string{
		OptionHeaders,
		{"Ｑ１", "Ｙ", "Yes", "1", "", "on"},
	}

	batch, err := Parse(buildWorkbook(t, sheets))
	require.NoError(t, err)
	assert.Equal(t, "Q1", batch.Questions[0].QCode)
	assert.Equal(t, 1, batch.Questions[0].SortOrder)
	assert.True(t, batch.Questions[0].IsActive)
	assert.Equal(t, "Q1", batch.Options[0].QCode)
	assert.Equal(t, "Y", batch.Options[0].OptCode)
}

func TestParse_OutcomeBlankCellsOmitted(t *testing.T) {
	sheets := validSheets()
	sheets[Outcomes] = [][]string{
		outcomeHeaders,
		{"Engineer", "", "1"},
		{"", "", "", ""},
		{"Designer", "Draws", "2", "0"},
	}

	batch, err := Parse(buildWorkbook(t, sheets))
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 2)
	assert.Equal(t, map[string]string{"name": "Engineer", "sort_order": "1"}, batch.Outcomes[0].Values)
	assert.Equal(t, 4, batch.Outcomes[1].Row)
}
