package outcome

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
)

const aiJobsName = "MST_AI_JOBS"

// aiJobColumns is the mst_ai_jobs column order minus system columns.
var aiJobColumns = []string{
	"name",
	"category",
	"role_summary",
	"main_role",
	"collaboration_style",
	"strength_areas",
	"description",
	"avg_salary_jpy",
	"target_phase",
	"core_skills",
	"deliverables",
	"pathway_detail",
	"ai_tools",
	"advice",
	"sort_order",
	"is_active",
}

// AIJob is one row of mst_ai_jobs.
type AIJob struct {
	Name               string
	Category           *string
	RoleSummary        string
	MainRole           *string
	CollaborationStyle *string
	StrengthAreas      *string
	Description        string
	AvgSalaryJPY       *string
	TargetPhase        *string
	CoreSkills         *string
	Deliverables       *string
	PathwayDetail      *string
	AITools            *string
	Advice             *string
	SortOrder          int
	IsActive           bool
}

func aiJobFromValues(values map[string]string) AIJob {
	text := func(k string) string { return strings.TrimSpace(values[k]) }
	opt := func(k string) *string {
		v := text(k)
		if v == "" {
			return nil
		}
		return &v
	}
	return AIJob{
		Name:               text("name"),
		Category:           opt("category"),
		RoleSummary:        text("role_summary"),
		MainRole:           opt("main_role"),
		CollaborationStyle: opt("collaboration_style"),
		StrengthAreas:      opt("strength_areas"),
		Description:        text("description"),
		AvgSalaryJPY:       opt("avg_salary_jpy"),
		TargetPhase:        opt("target_phase"),
		CoreSkills:         opt("core_skills"),
		Deliverables:       opt("deliverables"),
		PathwayDetail:      opt("pathway_detail"),
		AITools:            opt("ai_tools"),
		Advice:             opt("advice"),
		SortOrder:          parseSortOrder(values["sort_order"]),
		IsActive:           parseActive(values["is_active"]),
	}
}

func (j AIJob) args() []any {
	return []any{
		j.Name, j.Category, j.RoleSummary, j.MainRole, j.CollaborationStyle,
		j.StrengthAreas, j.Description, j.AvgSalaryJPY, j.TargetPhase,
		j.CoreSkills, j.Deliverables, j.PathwayDetail, j.AITools, j.Advice,
		j.SortOrder, j.IsActive,
	}
}

type aiJobs struct{}

func (aiJobs) Name() string              { return aiJobsName }
func (aiJobs) Table() string             { return "mst_ai_jobs" }
func (aiJobs) Columns() []string         { return append([]string(nil), aiJobColumns...) }
func (aiJobs) KeyFields() []string       { return []string{"name"} }
func (aiJobs) DefaultLabelField() string { return "name" }

func (h aiJobs) Upsert(ctx context.Context, q db.Querier, values map[string]string) (Result, error) {
	job := aiJobFromValues(values)
	id, inserted, err := db.UpsertReturning(ctx, q, db.UpsertConfig{
		Table:        h.Table(),
		Columns:      aiJobColumns,
		ConflictKeys: h.KeyFields(),
		TouchCols:    []string{"updated_at"},
	}, job.args())
	if err != nil {
		return Result{}, eris.Wrapf(err, "outcome: upsert %s", job.Name)
	}

	return Result{
		ID:        id,
		Inserted:  inserted,
		Label:     job.Name,
		SortOrder: job.SortOrder,
		IsActive:  job.IsActive,
		Meta:      snapshotMeta(aiJobColumns, values, job.SortOrder, job.IsActive),
	}, nil
}

func (h aiJobs) ListActive(ctx context.Context, q db.Querier) ([]map[string]any, error) {
	rows, err := q.Query(ctx, `SELECT name, category, role_summary, main_role, collaboration_style,
		strength_areas, description, avg_salary_jpy, target_phase, core_skills,
		deliverables, pathway_detail, ai_tools, advice, sort_order, is_active
		FROM mst_ai_jobs WHERE is_active ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "outcome: list mst_ai_jobs")
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var j AIJob
		if err := rows.Scan(&j.Name, &j.Category, &j.RoleSummary, &j.MainRole, &j.CollaborationStyle,
			&j.StrengthAreas, &j.Description, &j.AvgSalaryJPY, &j.TargetPhase, &j.CoreSkills,
			&j.Deliverables, &j.PathwayDetail, &j.AITools, &j.Advice, &j.SortOrder, &j.IsActive); err != nil {
			return nil, eris.Wrap(err, "outcome: scan mst_ai_jobs")
		}
		row := make(map[string]any, len(aiJobColumns))
		for i, v := range j.args() {
			row[aiJobColumns[i]] = deref(v)
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "outcome: iterate mst_ai_jobs")
}

// snapshotMeta is the outcome_meta blob: every column's raw sheet value
// with sort_order as an integer and is_active as 1 or 0.
func snapshotMeta(columns []string, values map[string]string, sortOrder int, active bool) map[string]any {
	meta := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := values[c]; ok {
			meta[c] = v
		} else {
			meta[c] = nil
		}
	}
	meta["sort_order"] = sortOrder
	meta["is_active"] = 0
	if active {
		meta["is_active"] = 1
	}
	return meta
}

func parseSortOrder(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		if f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return n
}

func parseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true
	}
	return false
}

func deref(v any) any {
	if p, ok := v.(*string); ok {
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}
