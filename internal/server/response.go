package server

import (
	"encoding/json"
	"errors"
	"net/http"

	executor "github.com/hanpama/permgraph/internal/executor"
	language "github.com/hanpama/permgraph/internal/language"
)

// failure is the body for errors raised outside the executor. Parser errors
// keep their locations.
type failure struct {
	Data   any               `json:"data"`
	Errors []*language.Error `json:"errors"`
}

func (h *Handler) fail(w http.ResponseWriter, herr *httpError) {
	h.write(w, herr.status, failure{Errors: []*language.Error{{Message: herr.message}}})
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opts.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// syntaxFailure turns a parse error into an execution result without data.
func syntaxFailure(err error) *executor.ExecutionResult {
	ge := executor.GraphQLError{Message: err.Error()}
	var perr *language.Error
	if errors.As(err, &perr) {
		ge.Message = perr.Message
		for _, l := range perr.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: l.Line, Column: l.Column})
		}
	}
	return &executor.ExecutionResult{Errors: []executor.GraphQLError{ge}}
}
