// Package sheet reads and writes the structure workbook: the questions,
// options and outcomes sheets an editor round-trips through a spreadsheet.
package sheet

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// Sheet names.
const (
	Questions = "questions"
	Options   = "options"
	Outcomes  = "outcomes"
)

const maxCodeLen = 64

var (
	// QuestionHeaders is the exact header row of the questions sheet.
	QuestionHeaders = []string{"q_code", "display_text", "multi", "sort_order", "is_active"}
	// OptionHeaders is the exact header row of the options sheet.
	OptionHeaders = []string{"q_code", "opt_code", "display_label", "sort_order", "llm_op", "is_active"}

	requiredSheets = []string{Questions, Options, Outcomes}
)

// Parse decodes a workbook into an import batch. Failures are
// *apperr.Error values carrying cell references.
func Parse(content []byte) (*model.ImportBatch, error) {
	f, err := xlsx.OpenBinary(content)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindImportValidation, "failed to read the uploaded workbook")
	}

	var missing, cells []string
	for _, name := range requiredSheets {
		if _, ok := f.Sheet[name]; !ok {
			missing = append(missing, name)
			cells = append(cells, name+"!A1")
		}
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.KindSheetMissing,
			fmt.Sprintf("missing required sheet(s): %s", strings.Join(missing, ", ")), cells...)
	}

	questions, err := parseQuestions(grid(f.Sheet[Questions]))
	if err != nil {
		return nil, err
	}
	options, err := parseOptions(grid(f.Sheet[Options]))
	if err != nil {
		return nil, err
	}
	outcomes, headers := parseOutcomes(grid(f.Sheet[Outcomes]))

	return &model.ImportBatch{
		Questions:      questions,
		Options:        options,
		Outcomes:       outcomes,
		OutcomeHeaders: headers,
		Warnings:       []string{},
	}, nil
}

func parseQuestions(rows [][]string) ([]model.QuestionRow, error) {
	if err := validateHeaders(Questions, header(rows), QuestionHeaders); err != nil {
		return nil, err
	}

	var out []model.QuestionRow
	var bad []string
	seen := map[string]bool{}
	for i := 1; i < len(rows); i++ {
		r := i + 1
		cells := pad(rows[i], len(QuestionHeaders))
		if rowBlank(cells) {
			continue
		}

		code := normalizeCode(cells[0])
		if code == "" {
			bad = append(bad, ref(Questions, 0, r))
			continue
		}
		rowBad := false
		flag := func(col int) {
			bad = append(bad, ref(Questions, col, r))
			rowBad = true
		}
		if len(code) > maxCodeLen || seen[code] {
			flag(0)
		}
		multi, ok := coerceBool(cells[2])
		if !ok {
			flag(2)
		}
		sortOrder, ok := coerceInt(cells[3])
		if !ok {
			flag(3)
		}
		active, ok := coerceBool(cells[4])
		if !ok {
			flag(4)
		}
		seen[code] = true
		if rowBad {
			continue
		}

		out = append(out, model.QuestionRow{
			QCode:       code,
			DisplayText: strings.TrimSpace(cells[1]),
			Multi:       multi,
			SortOrder:   sortOrder,
			IsActive:    active,
			Row:         r,
		})
	}

	if len(bad) > 0 {
		return nil, apperr.New(apperr.KindImportValidation, "questions sheet contains invalid values", bad...)
	}
	return out, nil
}

func parseOptions(rows [][]string) ([]model.OptionRow, error) {
	if err := validateHeaders(Options, header(rows), OptionHeaders); err != nil {
		return nil, err
	}

	type position struct {
		qCode string
		sort  int
	}
	var out []model.OptionRow
	var bad []string
	seenCode := map[[2]string]bool{}
	seenSort := map[position]bool{}
	for i := 1; i < len(rows); i++ {
		r := i + 1
		cells := pad(rows[i], len(OptionHeaders))
		if rowBlank(cells) {
			continue
		}

		qCode := normalizeCode(cells[0])
		if qCode == "" {
			bad = append(bad, ref(Options, 0, r))
			continue
		}
		optCode := normalizeCode(cells[1])
		if optCode == "" {
			bad = append(bad, ref(Options, 1, r))
			continue
		}
		rowBad := false
		flag := func(col int) {
			bad = append(bad, ref(Options, col, r))
			rowBad = true
		}
		key := [2]string{qCode, optCode}
		if len(optCode) > maxCodeLen || seenCode[key] {
			flag(1)
		}
		sortOrder, ok := coerceInt(cells[3])
		if !ok {
			flag(3)
		} else if seenSort[position{qCode, sortOrder}] {
			flag(3)
		}
		llmOp, ok := parseLLMOp(cells[4])
		if !ok {
			flag(4)
		}
		active, ok := coerceBool(cells[5])
		if !ok {
			flag(5)
		}
		seenCode[key] = true
		seenSort[position{qCode, sortOrder}] = true
		if rowBad {
			continue
		}

		out = append(out, model.OptionRow{
			QCode:        qCode,
			OptCode:      optCode,
			DisplayLabel: strings.TrimSpace(cells[2]),
			SortOrder:    sortOrder,
			LLMOp:        llmOp,
			IsActive:     active,
			Row:          r,
		})
	}

	if len(bad) > 0 {
		return nil, apperr.New(apperr.KindImportValidation, "options sheet contains invalid values", bad...)
	}
	return out, nil
}

// parseOutcomes keeps every non-blank row as a header-keyed map; the
// registry validates headers and keys once the target table is known.
func parseOutcomes(rows [][]string) ([]model.OutcomeRow, []string) {
	headers := header(rows)

	var out []model.OutcomeRow
	for i := 1; i < len(rows); i++ {
		if rowBlank(rows[i]) {
			continue
		}
		values := make(map[string]string, len(headers))
		for col, name := range headers {
			if col >= len(rows[i]) {
				break
			}
			if v := strings.TrimSpace(rows[i][col]); v != "" {
				values[name] = v
			}
		}
		out = append(out, model.OutcomeRow{Values: values, Row: i + 1})
	}
	return out, headers
}

// validateHeaders requires the exact expected header row and reports
// every divergent position.
func validateHeaders(sheet string, actual, expected []string) error {
	if slices.Equal(actual, expected) {
		return nil
	}
	var cells []string
	n := max(len(actual), len(expected))
	for i := 0; i < n; i++ {
		if i >= len(actual) || i >= len(expected) || actual[i] != expected[i] {
			cells = append(cells, ref(sheet, i, 1))
		}
	}
	return apperr.New(apperr.KindColumnsMissing,
		fmt.Sprintf("%s sheet headers do not match expected columns", sheet), cells...)
}

// grid flattens a sheet into raw cell strings; rows[0] is spreadsheet
// row 1.
func grid(s *xlsx.Sheet) [][]string {
	rows := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			if cell != nil {
				cells[j] = cell.String()
			}
		}
		rows[i] = cells
	}
	return rows
}

// header returns the trimmed first row without trailing blank cells.
func header(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	h := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		h[i] = strings.TrimSpace(c)
	}
	for len(h) > 0 && h[len(h)-1] == "" {
		h = h[:len(h)-1]
	}
	return h
}

func pad(cells []string, n int) []string {
	if len(cells) >= n {
		return cells[:n]
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}

func ref(sheet string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", sheet, xlsx.ColIndexToLetters(col), row)
}
