// Package toolruntime implements the Tool Runtime (§4.7): a uniform
// dispatcher over the four tool kinds — in-process code handlers
// (generalizing the teacher's registry-by-name tools), and three
// declarative kinds (email, sql, rest) driven entirely by a
// ToolDefinition's ImplParams.
package toolruntime

import "github.com/nextlevelbuilder/orchhub/internal/providers"

// Result is the unified return from a tool dispatch, kept from the
// teacher's tools.Result shape.
type Result struct {
	ForLLM  string `json:"for_llm"`
	IsError bool   `json:"is_error"`
	Err     error  `json:"-"`

	Usage *providers.Usage `json:"-"`
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}
