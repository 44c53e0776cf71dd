// Package server exposes an executor over HTTP using the usual GraphQL
// request and response shapes.
package server

import (
	"context"
	"net/http"
	"time"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	executor "github.com/hanpama/permgraph/internal/executor"
	language "github.com/hanpama/permgraph/internal/language"
	log "github.com/hanpama/permgraph/internal/log"
	reqid "github.com/hanpama/permgraph/internal/reqid"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Handler serves GraphQL over GET and POST, including batched POSTs.
type Handler struct {
	exec *executor.Executor
	opts Options
}

// New returns a Handler executing against runtime and sch.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), opts: o}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(w, r)
	defer cancel()

	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: rw.status, Duration: time.Since(start)})
	}()

	h.serve(ctx, rw, r)
}

// requestContext applies the default timeout, the request id, the logger and
// the Context hook, in that order.
func (h *Handler) requestContext(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && h.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
	}

	ctx, id := reqid.FromRequest(ctx, r)
	w.Header().Set(reqid.Header, id)
	if h.opts.Logger.GetSink() != nil {
		ctx = log.WithLogger(ctx, h.opts.Logger.WithValues("request_id", id))
	}
	if h.opts.Context != nil {
		ctx = h.opts.Context(ctx, r)
	}
	return ctx, cancel
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	cors := h.opts.CORS
	switch r.Method {
	case http.MethodOptions:
		cors.apply(w, r)
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		if h.opts.GraphiQL && wantsGraphiQL(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(graphiqlPage)
			return
		}
	case http.MethodPost:
	default:
		h.fail(w, &httpError{status: http.StatusMethodNotAllowed, message: "method not allowed"})
		return
	}

	reqs, batched, herr := readRequests(r, h.opts.MaxBodyBytes)
	if herr != nil {
		h.fail(w, herr)
		return
	}
	cors.apply(w, r)

	if !batched {
		h.write(w, http.StatusOK, h.execute(ctx, reqs[0]))
		return
	}
	out := make([]*executor.ExecutionResult, len(reqs))
	for i, req := range reqs {
		out[i] = h.execute(ctx, req)
	}
	h.write(w, http.StatusOK, out)
}

func (h *Handler) execute(ctx context.Context, req Request) *executor.ExecutionResult {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return syntaxFailure(err)
	}
	opType := operationType(doc, req.OperationName)

	log.FromContext(ctx).V(1).Info("executing operation", "operation", req.OperationName, "type", opType)
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	start := time.Now()
	res := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)

	var errs []error
	for _, e := range res.Errors {
		errs = append(errs, e)
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return res
}

// operationType reports the kind of the operation that will run, or "" when
// none matches.
func operationType(doc *language.QueryDocument, name string) string {
	op := doc.Operations.ForName(name)
	if op == nil && name == "" && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

// statusWriter remembers the status code for the finish event.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
