package agentloop

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/titanous/json5"
	"github.com/valyala/fasttemplate"
)

// DocumentLookup resolves a memory document name to its text.
type DocumentLookup interface {
	Lookup(name string) (string, bool)
}

// ResolveValue substitutes {{name}} references in a string argument with the
// text of the named documents. When anything was substituted the result is
// read as a literal (see ParseLiteral); text that is not a literal stays a
// string. Non-string values and strings without references pass through.
func ResolveValue(v any, docs DocumentLookup) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return v, nil
	}

	substituted := false
	out, err := fasttemplate.ExecuteFuncStringWithErr(s, "{{", "}}", func(w io.Writer, tag string) (int, error) {
		name := strings.TrimSpace(tag)
		text, ok := docs.Lookup(name)
		if !ok {
			return 0, &UnknownVariableError{Name: name}
		}
		substituted = true
		return w.Write([]byte(text))
	})
	if err != nil {
		var unknown *UnknownVariableError
		if errors.As(err, &unknown) {
			return nil, unknown
		}
		return nil, fmt.Errorf("resolve %q: %w", s, err)
	}
	if !substituted {
		return s, nil
	}
	if lit, err := ParseLiteral(out); err == nil {
		return lit, nil
	}
	return out, nil
}

// ResolveCommand resolves every top-level string in args and kwargs.
func ResolveCommand(cmd Command, docs DocumentLookup) ([]any, map[string]any, error) {
	args := make([]any, len(cmd.Args))
	for i, v := range cmd.Args {
		r, err := ResolveValue(v, docs)
		if err != nil {
			return nil, nil, err
		}
		args[i] = r
	}
	kwargs := make(map[string]any, len(cmd.Kwargs))
	for k, v := range cmd.Kwargs {
		r, err := ResolveValue(v, docs)
		if err != nil {
			return nil, nil, err
		}
		kwargs[k] = r
	}
	return args, kwargs, nil
}

// ParseLiteral reads s as a data literal: numbers, booleans, null, quoted
// strings (single or double), arrays and objects. Nothing is evaluated.
// Non-finite numbers (NaN, Infinity) are rejected since results must
// serialise as JSON.
func ParseLiteral(s string) (any, error) {
	var v any
	if err := json5.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, err
	}
	if !finite(v) {
		return nil, fmt.Errorf("literal %q holds a non-finite number", s)
	}
	return v, nil
}

func finite(v any) bool {
	switch x := v.(type) {
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case []any:
		for _, e := range x {
			if !finite(e) {
				return false
			}
		}
	case map[string]any:
		for _, e := range x {
			if !finite(e) {
				return false
			}
		}
	}
	return true
}

// NamingPolicy decides the numeric suffix of result document names.
type NamingPolicy int

const (
	// PrefixNaming counts existing names starting with "<action>_result_".
	PrefixNaming NamingPolicy = iota
	// SubstringNaming counts existing names containing the action name.
	SubstringNaming
)

// ResultName returns a fresh "<action>_result_<n>" document name. The suffix
// is one more than the count of matching names, bumped until unused.
func ResultName(action string, existing []string, policy NamingPolicy) string {
	prefix := action + "_result_"
	taken := make(map[string]bool, len(existing))
	n := 1
	for _, name := range existing {
		taken[name] = true
		switch policy {
		case SubstringNaming:
			if strings.Contains(name, action) {
				n++
			}
		default:
			if strings.HasPrefix(name, prefix) {
				n++
			}
		}
	}
	for taken[fmt.Sprintf("%s%d", prefix, n)] {
		n++
	}
	return fmt.Sprintf("%s%d", prefix, n)
}
