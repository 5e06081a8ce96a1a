package reconcile

import "github.com/sells-group/diagnostic-versions/internal/model"

// Resolution is how an imported option row maps onto the master catalog.
type Resolution uint8

const (
	// New rows get a fresh option.
	New Resolution = iota
	// Matched rows hit an existing option by (question, opt_code).
	Matched
	// Renamed rows took over the option at (question, sort_order) and
	// overwrite its opt_code.
	Renamed
)

func (r Resolution) String() string {
	switch r {
	case Matched:
		return "matched"
	case Renamed:
		return "renamed"
	default:
		return "new"
	}
}

// Decision is the result of resolving one option row.
type Decision struct {
	Resolution Resolution
	OptionID   int64
	// PreviousCode is the opt_code being replaced on a rename.
	PreviousCode string
}

type codeKey struct {
	questionID int64
	code       string
}

type sortKey struct {
	questionID int64
	sortOrder  int
}

// OptionIndex resolves option rows against the existing options of the
// imported questions. It holds no database handle.
type OptionIndex struct {
	byID   map[int64]model.Option
	byCode map[codeKey]int64
	bySort map[sortKey]int64
}

// NewOptionIndex indexes existing options by code and by position.
func NewOptionIndex(existing []model.Option) *OptionIndex {
	ix := &OptionIndex{
		byID:   make(map[int64]model.Option, len(existing)),
		byCode: make(map[codeKey]int64, len(existing)),
		bySort: make(map[sortKey]int64, len(existing)),
	}
	for _, o := range existing {
		ix.put(o)
	}
	return ix
}

// Resolve looks up by exact code first, then by position. Whatever option
// holds (question, sort_order) at that point is renamed.
func (ix *OptionIndex) Resolve(questionID int64, code string, sortOrder int) Decision {
	if id, ok := ix.byCode[codeKey{questionID, code}]; ok {
		return Decision{Resolution: Matched, OptionID: id}
	}
	if id, ok := ix.bySort[sortKey{questionID, sortOrder}]; ok {
		return Decision{Resolution: Renamed, OptionID: id, PreviousCode: ix.byID[id].OptCode}
	}
	return Decision{Resolution: New}
}

// Apply records the state an option has after a row was written, so
// later rows see renames and moves made earlier in the batch.
func (ix *OptionIndex) Apply(o model.Option) {
	if prev, ok := ix.byID[o.ID]; ok {
		if ix.byCode[codeKey{prev.QuestionID, prev.OptCode}] == o.ID {
			delete(ix.byCode, codeKey{prev.QuestionID, prev.OptCode})
		}
		if ix.bySort[sortKey{prev.QuestionID, prev.SortOrder}] == o.ID {
			delete(ix.bySort, sortKey{prev.QuestionID, prev.SortOrder})
		}
	}
	ix.put(o)
}

func (ix *OptionIndex) put(o model.Option) {
	ix.byID[o.ID] = o
	ix.byCode[codeKey{o.QuestionID, o.OptCode}] = o.ID
	ix.bySort[sortKey{o.QuestionID, o.SortOrder}] = o.ID
}
