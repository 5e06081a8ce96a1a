package model

// Question is a master catalog question, unique per (diagnostic_id, q_code).
type Question struct {
	ID           int64
	DiagnosticID int64
	QCode        string
	DisplayText  string
	Multi        bool
	SortOrder    int
	IsActive     bool
}

// Option is a master catalog option, unique per (question_id, opt_code) and
// per (question_id, sort_order).
type Option struct {
	ID           int64
	QuestionID   int64
	OptCode      string
	DisplayLabel string
	LLMOp        map[string]any
	SortOrder    int
	IsActive     bool
}

// VersionQuestion is a question row frozen into a version snapshot.
type VersionQuestion struct {
	ID           int64  `json:"id" yaml:"id"`
	VersionID    int64  `json:"version_id" yaml:"version_id"`
	DiagnosticID int64  `json:"diagnostic_id" yaml:"diagnostic_id"`
	QuestionID   int64  `json:"question_id" yaml:"question_id"`
	QCode        string `json:"q_code" yaml:"q_code"`
	DisplayText  string `json:"display_text" yaml:"display_text"`
	Multi        bool   `json:"multi" yaml:"multi"`
	SortOrder    int    `json:"sort_order" yaml:"sort_order"`
	IsActive     bool   `json:"is_active" yaml:"is_active"`
}

// VersionOption is an option row frozen into a version snapshot. It points
// at its VersionQuestion, not at the live question.
type VersionOption struct {
	ID                int64          `json:"id" yaml:"id"`
	VersionID         int64          `json:"version_id" yaml:"version_id"`
	VersionQuestionID int64          `json:"version_question_id" yaml:"version_question_id"`
	OptionID          int64          `json:"option_id" yaml:"option_id"`
	QCode             string         `json:"q_code" yaml:"q_code"`
	OptCode           string         `json:"opt_code" yaml:"opt_code"`
	DisplayLabel      string         `json:"display_label" yaml:"display_label"`
	LLMOp             map[string]any `json:"llm_op" yaml:"llm_op"`
	SortOrder         int            `json:"sort_order" yaml:"sort_order"`
	IsActive          bool           `json:"is_active" yaml:"is_active"`
}

// VersionOutcome binds an outcome master row into a version snapshot.
type VersionOutcome struct {
	ID        int64          `json:"id" yaml:"id"`
	VersionID int64          `json:"version_id" yaml:"version_id"`
	OutcomeID int64          `json:"outcome_id" yaml:"outcome_id"`
	Meta      map[string]any `json:"outcome_meta" yaml:"outcome_meta"`
	SortOrder int            `json:"sort_order" yaml:"sort_order"`
	IsActive  bool           `json:"is_active" yaml:"is_active"`
}

// Snapshot is the full structure of one version.
type Snapshot struct {
	Questions []VersionQuestion
	Options   []VersionOption
	Outcomes  []VersionOutcome
}

// ActiveOptionCount counts snapshot options with IsActive set.
func (s *Snapshot) ActiveOptionCount() int {
	n := 0
	for _, o := range s.Options {
		if o.IsActive {
			n++
		}
	}
	return n
}
