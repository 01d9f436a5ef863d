package pam360

import (
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
	StatusUnknown = "Unknown"
)

// Result is the outcome of a single API call. Transport, TLS and decoding
// problems are folded into a Failed result, so callers only look at Status.
type Result struct {
	Status  string
	Message string
	Details json.RawMessage
	// Err is set when the call produced no usable API answer.
	Err error
}

func Failed(err error) Result {
	return Result{
		Status:  StatusFailed,
		Message: err.Error(),
		Err:     err,
	}
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s", r.Status, r.Message)
}

func (r Result) hasDetails() bool {
	return len(r.Details) > 0 && string(r.Details) != "null"
}

// decodeDetails unmarshals Details into v. A result without details is left as is.
func (r Result) decodeDetails(v interface{}) Result {
	if !r.hasDetails() {
		return r
	}
	if err := json.Unmarshal(r.Details, v); err != nil {
		return Failed(fmt.Errorf("decode %s details: %w", r.Status, err))
	}
	return r
}

type envelope struct {
	Operation struct {
		Name   string `json:"name,omitempty"`
		Result struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"result"`
		Details json.RawMessage `json:"Details,omitempty"`
	} `json:"operation"`
}

func (e envelope) result() Result {
	res := Result{
		Status:  e.Operation.Result.Status,
		Message: e.Operation.Result.Message,
		Details: e.Operation.Details,
	}
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	if res.Message == "" {
		res.Message = StatusUnknown
	}
	return res
}

type request struct {
	Operation struct {
		Details interface{} `json:"Details"`
	} `json:"operation"`
}
