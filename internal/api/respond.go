package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
)

type errorBody struct {
	Code         apperr.Kind `json:"code"`
	Message      string      `json:"message"`
	Detail       string      `json:"detail,omitempty"`
	InvalidCells []string    `json:"invalid_cells,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err as the error envelope. Unclassified errors are
// logged and reported without internals.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		zap.L().Error("unexpected request failure",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		e = apperr.New(apperr.KindUnexpected, "")
	}
	body := errorBody{
		Code:         e.Kind,
		Message:      e.Kind.Message(),
		Detail:       e.Detail,
		InvalidCells: e.Cells,
	}
	writeJSON(w, e.Kind.HTTPStatus(), map[string]errorBody{"error": body})
}
