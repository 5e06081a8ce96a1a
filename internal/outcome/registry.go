// Package outcome is the static registry of outcome master tables a
// diagnostic can reference through its outcome_table_name.
package outcome

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// Result describes one reconciled outcome master row.
type Result struct {
	ID        int64
	Inserted  bool
	Label     string
	SortOrder int
	IsActive  bool
	Meta      map[string]any
}

// Handler is the typed binding for one outcome master table.
type Handler interface {
	// Name is the registry key, e.g. "MST_AI_JOBS".
	Name() string
	Table() string
	// Columns are the expected outcome sheet headers, sort_order and
	// is_active last.
	Columns() []string
	KeyFields() []string
	DefaultLabelField() string
	// Upsert creates or updates the row identified by the key fields.
	Upsert(ctx context.Context, q db.Querier, values map[string]string) (Result, error)
	// ListActive returns active master rows keyed by column, ordered by
	// sort_order then id.
	ListActive(ctx context.Context, q db.Querier) ([]map[string]any, error)
}

var registry = map[string]Handler{
	aiJobsName: aiJobs{},
}

// Lookup resolves a diagnostic's outcome_table_name. Surrounding space is
// ignored and the match is case-insensitive.
func Lookup(tableName string) (Handler, error) {
	key := strings.ToUpper(strings.TrimSpace(tableName))
	h, ok := registry[key]
	if !ok {
		return nil, apperr.New(apperr.KindOutcomeModel, fmt.Sprintf("unsupported outcome table: %s", tableName))
	}
	return h, nil
}

// Names lists registered keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidateHeaders checks the outcome sheet header row against the handler's
// columns. An exact match or a same-length permutation passes; otherwise
// every divergent position is reported.
func ValidateHeaders(h Handler, actual []string) error {
	expected := h.Columns()
	if len(expected) == 0 {
		return nil
	}
	if len(actual) == len(expected) && sameSet(actual, expected) {
		return nil
	}

	var cells []string
	var first string
	n := max(len(actual), len(expected))
	for i := 0; i < n; i++ {
		var exp, act string
		var hasExp, hasAct bool
		if i < len(expected) {
			exp, hasExp = expected[i], true
		}
		if i < len(actual) {
			act, hasAct = actual[i], true
		}
		if hasExp != hasAct || exp != act {
			if first == "" {
				first = exp
				if !hasExp {
					first = act
				}
			}
			cells = append(cells, CellRef("outcomes", i, 1))
		}
	}
	return apperr.New(apperr.KindColumnsMissing,
		fmt.Sprintf("outcomes sheet headers do not match the outcome table schema (first mismatch: %s)", first),
		cells...)
}

// MissingKeys reports every outcome row cell whose key value is blank.
func MissingKeys(h Handler, headers []string, rows []model.OutcomeRow) error {
	positions := make(map[string]int, len(headers))
	for i, name := range headers {
		positions[name] = i
	}

	var cells []string
	missing := map[string]bool{}
	for _, row := range rows {
		for _, key := range h.KeyFields() {
			if strings.TrimSpace(row.Values[key]) != "" {
				continue
			}
			missing[key] = true
			rowIndex := row.Row
			if rowIndex == 0 {
				rowIndex = 2
			}
			cells = append(cells, CellRef("outcomes", positions[key], rowIndex))
		}
	}
	if len(cells) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for k := range missing {
		names = append(names, k)
	}
	sort.Strings(names)
	return apperr.New(apperr.KindImportValidation,
		fmt.Sprintf("outcomes sheet contains rows missing required key values (%s)", strings.Join(names, ", ")),
		cells...)
}

// CellRef renders a "<sheet>!<column><row>" reference for a zero-based
// column index and a one-based row.
func CellRef(sheet string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", sheet, xlsx.ColIndexToLetters(col), row)
}

func sameSet(a, b []string) bool {
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		set[s]--
	}
	for _, n := range set {
		if n != 0 {
			return false
		}
	}
	return true
}
