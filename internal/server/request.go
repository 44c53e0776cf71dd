package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

// Request is one GraphQL request as sent over the wire.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// httpError is a request rejected before execution.
type httpError struct {
	status  int
	message string
}

func badRequest(msg string) *httpError {
	return &httpError{status: http.StatusBadRequest, message: msg}
}

// readRequests decodes r into one request, or several when the POST body is a
// JSON array.
func readRequests(r *http.Request, maxBody int64) ([]Request, bool, *httpError) {
	if r.Method == http.MethodGet {
		req, herr := queryRequest(r)
		if herr != nil {
			return nil, false, herr
		}
		return []Request{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, false, badRequest("unsupported Content-Type")
		}
	}
	body, herr := readBody(r, maxBody)
	if herr != nil {
		return nil, false, herr
	}

	if trimmed := bytes.TrimLeft(body, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []Request
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, true, badRequest("invalid JSON")
		}
		if len(batch) == 0 {
			return nil, true, badRequest("empty batch")
		}
		return batch, true, nil
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	return []Request{req}, false, nil
}

func queryRequest(r *http.Request) (Request, *httpError) {
	q := r.URL.Query()
	req := Request{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if req.Query == "" {
		return req, badRequest("missing 'query'")
	}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return req, badRequest("invalid 'variables' JSON")
		}
	}
	return req, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, *httpError) {
	defer r.Body.Close()
	src := io.Reader(r.Body)
	if maxBody > 0 {
		src = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &httpError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}
	return body, nil
}
