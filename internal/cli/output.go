package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"mycoledger/internal/archive"
	"mycoledger/pkg/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // unclassified failure (storage, blob, transport)
	ExitInvalidInput = 2
	ExitNotFound     = 3
	ExitOverflow     = 4
	ExitUnauthorized = 5
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeFor maps an error to a process exit code. Ledger failures map by
// kind; anything else is ExitFailure.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, archive.ErrNotFound) {
		return ExitNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return ExitInvalidInput
	case domain.KindNotFound:
		return ExitNotFound
	case domain.KindOverflow:
		return ExitOverflow
	case domain.KindUnauthorized:
		return ExitUnauthorized
	default:
		return ExitFailure
	}
}

// Response is the envelope of json and yaml output.
type Response struct {
	Status string         `json:"status" yaml:"status"`
	Data   any            `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// Printer renders command results in the selected format.
type Printer struct {
	Format string
	Writer io.Writer
}

// Success writes data. text renders the human-readable form.
func (p Printer) Success(data any, text func(io.Writer)) error {
	switch p.Format {
	case FormatJSON:
		return json.NewEncoder(p.Writer).Encode(Response{Status: "ok", Data: data})
	case FormatYAML:
		return p.yaml(Response{Status: "ok", Data: data})
	default:
		text(p.Writer)
		return nil
	}
}

// Failure writes err in the selected format.
func (p Printer) Failure(err error) error {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "error"
	}
	switch p.Format {
	case FormatJSON:
		return json.NewEncoder(p.Writer).Encode(Response{Status: "error", Error: &ResponseError{Kind: kind, Message: err.Error()}})
	case FormatYAML:
		return p.yaml(Response{Status: "error", Error: &ResponseError{Kind: kind, Message: err.Error()}})
	default:
		_, werr := fmt.Fprintf(p.Writer, "Error [%s]: %v\n", kind, err)
		return werr
	}
}

// yaml routes v through its JSON form so both formats share the snake_case
// field names declared in json tags.
func (p Printer) yaml(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(generic)); err != nil {
		return err
	}
	return enc.Close()
}

func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
