package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/diagnostic-versions/internal/model"
)

// ContentType is the media type of exported workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Template is everything written into an exported workbook. Rows are
// written in slice order.
type Template struct {
	Questions      []model.VersionQuestion
	Options        []model.VersionOption
	OutcomeHeaders []string
	Outcomes       [][]any
}

// OutcomeCells lays a header-keyed record out in header order. Flags are
// written as 1/0.
func OutcomeCells(headers []string, record map[string]any) []any {
	cells := make([]any, len(headers))
	for i, h := range headers {
		v := record[h]
		if h == "is_active" || h == "multi" {
			if v != nil {
				v = flag(truthyValue(v))
			}
		}
		cells[i] = v
	}
	return cells
}

// Export renders the template as an xlsx workbook.
func Export(t Template) ([]byte, error) {
	f := xlsx.NewFile()

	qs, err := f.AddSheet(Questions)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: add questions sheet")
	}
	writeStrings(qs.AddRow(), QuestionHeaders)
	for _, q := range t.Questions {
		row := qs.AddRow()
		row.AddCell().SetString(q.QCode)
		row.AddCell().SetString(q.DisplayText)
		row.AddCell().SetInt(flag(q.Multi))
		row.AddCell().SetInt(q.SortOrder)
		row.AddCell().SetInt(flag(q.IsActive))
	}

	ops, err := f.AddSheet(Options)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: add options sheet")
	}
	writeStrings(ops.AddRow(), OptionHeaders)
	for _, o := range t.Options {
		llmOp := ""
		if len(o.LLMOp) > 0 {
			if llmOp, err = dumpJSON(o.LLMOp); err != nil {
				return nil, eris.Wrapf(err, "sheet: encode llm_op for %s/%s", o.QCode, o.OptCode)
			}
		}
		row := ops.AddRow()
		row.AddCell().SetString(o.QCode)
		row.AddCell().SetString(o.OptCode)
		row.AddCell().SetString(o.DisplayLabel)
		row.AddCell().SetInt(o.SortOrder)
		row.AddCell().SetString(llmOp)
		row.AddCell().SetInt(flag(o.IsActive))
	}

	us, err := f.AddSheet(Outcomes)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: add outcomes sheet")
	}
	writeStrings(us.AddRow(), t.OutcomeHeaders)
	for _, cells := range t.Outcomes {
		row := us.AddRow()
		for _, v := range cells {
			if err := setCell(row.AddCell(), v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "sheet: write workbook")
	}
	return buf.Bytes(), nil
}

func writeStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func setCell(c *xlsx.Cell, v any) error {
	switch x := v.(type) {
	case nil:
	case string:
		c.SetString(x)
	case int:
		c.SetInt(x)
	case int64:
		c.SetInt64(x)
	case float64:
		c.SetFloat(x)
	case bool:
		c.SetInt(flag(x))
	case json.Number:
		c.SetString(x.String())
	case map[string]any, []any:
		s, err := dumpJSON(x)
		if err != nil {
			return eris.Wrap(err, "sheet: encode outcome cell")
		}
		c.SetString(s)
	default:
		c.SetString(fmt.Sprint(x))
	}
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func truthyValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		b, _ := coerceBool(x)
		return b
	}
	return false
}
