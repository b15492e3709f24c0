package agentloop

import (
	"fmt"
	"strings"
)

const ruleLine = "============================================================="

// ExampleResponse is the response shape shown to the model on every step.
const ExampleResponse = `{
    "thoughts": {
        "text": "<your thought>",
        "reasoning": "<your reasoning>"
    },
    "command": {
        "action": "selected_action_name",
        "args": ["arg1", "arg2"],
        "kwargs": {
            "kwarg1": "kwarg1_value",
            "kwarg2": "kwarg2_value"
        }
    }
}

Use double curly braces to pass a document from memory as an argument, e.g. "args": ["{{file_name}}", "arg2"]. The name must match a document listed in your memory above exactly.
Always provide thoughts and reasoning for your action.`

// PromptData is everything a step prompt renders.
type PromptData struct {
	Objective string
	Actions   string
	Memory    string
	History   string
	Context   string
}

// BuildPrompt renders the step prompt. Sections appear in a fixed order,
// separated by rule lines.
func BuildPrompt(d PromptData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an AI agent given the following objective: %q\n\n", d.Objective)

	section := func(header, body string) {
		sb.WriteString(ruleLine)
		sb.WriteByte('\n')
		sb.WriteString(header)
		sb.WriteByte('\n')
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}

	section("You can take the following actions. Required params are listed by name, optional params with their default (kwarg1=\"default_value\").", d.Actions)
	section("These files / variables are available to you in your memory:", d.Memory)
	section("You have taken the following actions so far. Try not to repeat yourself unless necessary.", d.History)
	section("Here is some potentially helpful context about your environment:", d.Context)
	section("What is your next action? Choose exactly ONE action. Answer with a single JSON object of the form below and nothing else. Example:", ExampleResponse)
	return sb.String()
}

// FormatHistory renders one bullet per command, or "None." when empty.
func FormatHistory(records []CommandRecord) string {
	if len(records) == 0 {
		return "None."
	}
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = fmt.Sprintf("- %s with args %s and kwargs %s",
			rec.Command.Action, formatArgs(rec.Command.Args), formatKwargs(rec.Command.Kwargs))
	}
	return strings.Join(lines, "\n")
}

func formatArgs(args []any) string {
	if args == nil {
		args = []any{}
	}
	return formatValue(args)
}

func formatKwargs(kwargs map[string]any) string {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return formatValue(kwargs)
}
