package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActionFunc runs an action with its bound arguments. A non-nil result must
// marshal to JSON; a map[string]any or map[string]string holding "context"
// replaces the agent's running context with that value.
type ActionFunc func(ctx context.Context, args Args) (any, error)

// Param declares one action parameter. Parameters without a default are
// required.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// Required declares a parameter that must be supplied.
func Required(name string) Param { return Param{Name: name} }

// Optional declares a parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Action is a named capability the model can invoke.
type Action struct {
	Name        string
	Description string
	Params      []Param
	Func        ActionFunc
}

// Signature renders the parameter list, e.g. `name, query="x", max_length=5000`.
func (a Action) Signature() string {
	parts := make([]string, len(a.Params))
	for i, p := range a.Params {
		if !p.HasDefault {
			parts[i] = p.Name
			continue
		}
		def, err := marshalJSON(p.Default, "")
		if err != nil {
			def = []byte(fmt.Sprint(p.Default))
		}
		parts[i] = p.Name + "=" + string(def)
	}
	return strings.Join(parts, ", ")
}

// String renders the action as a prompt bullet body.
func (a Action) String() string {
	return fmt.Sprintf("`%s`, called with params (%s): %s", a.Name, a.Signature(), a.Description)
}

// bind maps positional args (in parameter order), kwargs and defaults onto
// the declared parameters.
func (a Action) bind(args []any, kwargs map[string]any) (Args, error) {
	if len(args) > len(a.Params) {
		return nil, fmt.Errorf("%s takes %d arguments but %d were given", a.Name, len(a.Params), len(args))
	}
	bound := make(Args, len(a.Params))
	for i, v := range args {
		bound[a.Params[i].Name] = v
	}
	for k, v := range kwargs {
		if !a.hasParam(k) {
			return nil, fmt.Errorf("%s got an unexpected keyword argument %q", a.Name, k)
		}
		if _, dup := bound[k]; dup {
			return nil, fmt.Errorf("%s got multiple values for argument %q", a.Name, k)
		}
		bound[k] = v
	}
	for _, p := range a.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if !p.HasDefault {
			return nil, fmt.Errorf("%s missing required argument %q", a.Name, p.Name)
		}
		bound[p.Name] = p.Default
	}
	return bound, nil
}

func (a Action) hasParam(name string) bool {
	for _, p := range a.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Args holds an action's bound arguments by parameter name.
type Args map[string]any

// String extracts a string argument. Non-string scalars are formatted.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int, bool, json.Number:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

// Int extracts an integer argument. Numeric strings are accepted.
func (a Args) Int(key string) (int, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Float extracts a floating point argument.
func (a Args) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool extracts a boolean argument.
func (a Args) Bool(key string) (bool, bool) {
	v, ok := a[key]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// RequireString extracts a string argument or reports it missing.
func (a Args) RequireString(key string) (string, error) {
	s, ok := a.String(key)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
