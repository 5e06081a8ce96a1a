package sheet

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "n": true, "off": true}
)

// normalizeCode folds full-width characters and applies NFKC so codes typed
// with an IME match their ASCII spelling.
func normalizeCode(s string) string {
	return strings.TrimSpace(norm.NFKC.String(width.Narrow.String(s)))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func rowBlank(cells []string) bool {
	for _, c := range cells {
		if !isBlank(c) {
			return false
		}
	}
	return true
}

// coerceBool accepts 1/true/yes/y/on and 0/false/no/n/off in any case.
// A blank cell is false.
func coerceBool(s string) (bool, bool) {
	v := strings.ToLower(normalizeCode(s))
	if v == "" {
		return false, true
	}
	if truthy[v] {
		return true, true
	}
	if falsy[v] {
		return false, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		switch int(f) {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// coerceInt parses an integer cell. A blank cell is 0; numeric cells that
// spreadsheets render as "2.0" are accepted when integral.
func coerceInt(s string) (int, bool) {
	v := normalizeCode(s)
	if v == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// parseLLMOp decodes the llm_op column, which must be blank or a JSON
// object.
func parseLLMOp(s string) (map[string]any, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil, true
	}
	dec := json.NewDecoder(strings.NewReader(v))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return out, true
}

// dumpJSON renders a value as sorted-key JSON without HTML escaping.
func dumpJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
