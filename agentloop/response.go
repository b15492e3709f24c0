package agentloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Thoughts is the model's optional explanation of its choice.
type Thoughts struct {
	Text      string `json:"text"`
	Reasoning string `json:"reasoning"`
}

// Command is one chosen action with its arguments, exactly as the model
// wrote them.
type Command struct {
	Action string         `json:"action"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// CommandRecord is a parsed model response.
type CommandRecord struct {
	Thoughts *Thoughts `json:"thoughts,omitempty"`
	Command  Command   `json:"command"`
}

// ParseResponse validates a completion against the command schema. Any
// failure is a *ResponseFormatError carrying the raw text.
func ParseResponse(completion string) (*CommandRecord, error) {
	rec, err := parseRecord(strings.TrimSpace(completion))
	if err != nil {
		return nil, &ResponseFormatError{Raw: completion, Err: err}
	}
	return rec, nil
}

func parseRecord(text string) (*CommandRecord, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, errors.New("response must be a JSON object")
	}

	rec := &CommandRecord{}
	if raw, ok := top["thoughts"]; ok && !isNull(raw) {
		var th map[string]json.RawMessage
		if err := json.Unmarshal(raw, &th); err != nil {
			return nil, errors.New(`"thoughts" must be an object`)
		}
		rec.Thoughts = &Thoughts{}
		if err := optionalString(th, "text", &rec.Thoughts.Text); err != nil {
			return nil, fmt.Errorf(`"thoughts": %w`, err)
		}
		if err := optionalString(th, "reasoning", &rec.Thoughts.Reasoning); err != nil {
			return nil, fmt.Errorf(`"thoughts": %w`, err)
		}
	}

	raw, ok := top["command"]
	if !ok || isNull(raw) {
		return nil, errors.New(`missing "command"`)
	}
	var cmd map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cmd); err != nil || cmd == nil {
		return nil, errors.New(`"command" must be an object`)
	}

	action, ok := cmd["action"]
	if !ok {
		return nil, errors.New(`missing "command.action"`)
	}
	if err := json.Unmarshal(action, &rec.Command.Action); err != nil || isNull(action) {
		return nil, errors.New(`"command.action" must be a string`)
	}
	if rec.Command.Action == "" {
		return nil, errors.New(`"command.action" must not be empty`)
	}

	rec.Command.Args = []any{}
	if raw, ok := cmd["args"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.Command.Args); err != nil {
			return nil, errors.New(`"command.args" must be an array`)
		}
	}
	rec.Command.Kwargs = map[string]any{}
	if raw, ok := cmd["kwargs"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.Command.Kwargs); err != nil {
			return nil, errors.New(`"command.kwargs" must be an object`)
		}
	}
	return rec, nil
}

func optionalString(m map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%q must be a string", key)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// marshalJSON encodes v without escaping <, > and &, so markup and code
// reach the prompt and memory as written. A non-empty indent pretty-prints.
func marshalJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// formatValue renders args or kwargs as compact JSON for prompts and errors.
func formatValue(v any) string {
	b, err := marshalJSON(v, "")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
