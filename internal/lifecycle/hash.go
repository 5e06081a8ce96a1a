package lifecycle

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/model"
)

// SourceHash is the content address of a version: the prompt and the three
// snapshot tables in canonical order, excluding row ids.
func SourceHash(prompt *string, snap *model.Snapshot) (string, error) {
	questions := slices.Clone(snap.Questions)
	// Ties break on codes, not row ids, so a re-import hashes the same.
	slices.SortStableFunc(questions, func(a, b model.VersionQuestion) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.QCode, b.QCode))
	})
	rank := make(map[int64]int, len(questions))
	qs := make([]any, len(questions))
	for i, q := range questions {
		rank[q.ID] = i
		qs[i] = map[string]any{
			"q_code":       q.QCode,
			"display_text": q.DisplayText,
			"multi":        q.Multi,
			"sort_order":   q.SortOrder,
			"is_active":    q.IsActive,
		}
	}

	options := slices.Clone(snap.Options)
	// Same for options: question rank, then sort_order, then opt_code.
	slices.SortStableFunc(options, func(a, b model.VersionOption) int {
		return cmp.Or(
			cmp.Compare(rank[a.VersionQuestionID], rank[b.VersionQuestionID]),
			cmp.Compare(a.SortOrder, b.SortOrder),
			cmp.Compare(a.OptCode, b.OptCode),
		)
	})
	opts := make([]any, len(options))
	for i, o := range options {
		var llmOp any
		if o.LLMOp != nil {
			llmOp = o.LLMOp
		}
		opts[i] = map[string]any{
			"q_code":        o.QCode,
			"opt_code":      o.OptCode,
			"display_label": o.DisplayLabel,
			"llm_op":        llmOp,
			"sort_order":    o.SortOrder,
			"is_active":     o.IsActive,
		}
	}

	outcomes := slices.Clone(snap.Outcomes)
	slices.SortStableFunc(outcomes, func(a, b model.VersionOutcome) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.OutcomeID, b.OutcomeID))
	})
	outs := make([]any, len(outcomes))
	for i, o := range outcomes {
		var meta any
		if o.Meta != nil {
			meta = o.Meta
		}
		outs[i] = map[string]any{
			"outcome_id": o.OutcomeID,
			"sort_order": o.SortOrder,
			"meta":       meta,
		}
	}

	h := sha256.New()
	if prompt != nil {
		h.Write([]byte(*prompt))
	}
	for _, part := range [][]any{qs, opts, outs} {
		b, err := canonicalJSON(part)
		if err != nil {
			return "", err
		}
		h.Write([]byte("\n"))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON is compact JSON with map keys sorted at every depth and no
// HTML escaping.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "lifecycle: encode hash payload")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// PromptDigest is the hex sha256 of a prompt, or "" when there is none.
func PromptDigest(prompt *string) string {
	if prompt == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(*prompt))
	return hex.EncodeToString(sum[:])
}
