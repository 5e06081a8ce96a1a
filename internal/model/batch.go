package model

// QuestionRow is one parsed row of the questions sheet.
type QuestionRow struct {
	QCode       string
	DisplayText string
	Multi       bool
	SortOrder   int
	IsActive    bool
	Row         int
}

// OptionRow is one parsed row of the options sheet.
type OptionRow struct {
	QCode        string
	OptCode      string
	DisplayLabel string
	SortOrder    int
	LLMOp        map[string]any
	IsActive     bool
	Row          int
}

// OutcomeRow is one parsed row of the outcomes sheet keyed by header name.
// Values are trimmed cell strings; a missing cell is absent from the map.
type OutcomeRow struct {
	Values map[string]string
	Row    int
}

// ImportBatch is the typed result of parsing a structure workbook.
type ImportBatch struct {
	Questions      []QuestionRow
	Options        []OptionRow
	Outcomes       []OutcomeRow
	OutcomeHeaders []string
	Warnings       []string
}

// ImportSummary is returned by a successful structure import.
type ImportSummary struct {
	VersionID         int64    `json:"version_id" yaml:"version_id"`
	QuestionsImported int      `json:"questions_imported" yaml:"questions_imported"`
	OptionsImported   int      `json:"options_imported" yaml:"options_imported"`
	OutcomesImported  int      `json:"outcomes_imported" yaml:"outcomes_imported"`
	Warnings          []string `json:"warnings" yaml:"warnings"`
}
