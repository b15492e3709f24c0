package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/martinemde/agentic/memory"
)

// Reserved action names.
const (
	ActionDeclareDone    = "declare_done"
	ActionAddDocument    = "add_document_to_memory"
	ActionQueryAll       = "query_all_documents_in_memory"
	ActionQueryOne       = "query_one_documents_in_memory"
	ActionGetDocument    = "get_document_from_memory"
	ActionAskAI          = "ask_ai"
	ActionAskUserClarify = "ask_user_to_clarify"
)

// reservedActions builds the actions every agent carries. The clarify action
// is included only when human input is configured.
func (a *Agent) reservedActions() []Action {
	var actions []Action
	if a.human != nil {
		actions = append(actions, Action{
			Name:        ActionAskUserClarify,
			Description: "Ask the user to clarify their instructions. Used when the information in the context is not enough to proceed to the next step.",
			Params:      []Param{Required("question")},
			Func:        a.askUser,
		})
	}
	return append(actions,
		Action{
			Name:        ActionAskAI,
			Description: `Given a prompt, submit to a language model and return its answer. For instance, "write me a poem about a squirrel" would return a string response with a poem about a squirrel.`,
			Params:      []Param{Required("prompt")},
			Func:        a.askAI,
		},
		Action{
			Name:        ActionDeclareDone,
			Description: "Declare that you are done with your objective.",
			Func:        func(context.Context, Args) (any, error) { return nil, nil },
		},
		Action{
			Name:        ActionAddDocument,
			Description: "Add document to the agent's memory.",
			Params:      []Param{Required("name"), Required("document")},
			Func:        a.addDocument,
		},
		Action{
			Name:        ActionQueryAll,
			Description: "Query the Memory to synthesize an answer from all documents. Useful for summarization and retrieval using information from all docs.",
			Params:      []Param{Required("query")},
			Func: func(ctx context.Context, args Args) (any, error) {
				return a.queryMemory(ctx, args, a.memory.QueryAll)
			},
		},
		Action{
			Name:        ActionQueryOne,
			Description: "Query the Memory to synthesize an answer from one document. Useful for summarization and retrieval using information from a single doc.",
			Params:      []Param{Required("query")},
			Func: func(ctx context.Context, args Args) (any, error) {
				return a.queryMemory(ctx, args, a.memory.QueryOne)
			},
		},
		Action{
			Name:        ActionGetDocument,
			Description: "Get the text of a document in memory. Documents longer than max_length are reduced to the part most relevant to query.",
			Params: []Param{
				Required("name"),
				Optional("query", memory.DefaultGetQuery),
				Optional("max_length", memory.DefaultMaxLength),
			},
			Func: a.getDocument,
		},
	)
}

func (a *Agent) askAI(ctx context.Context, args Args) (any, error) {
	prompt, err := args.RequireString("prompt")
	if err != nil {
		return nil, err
	}
	return a.completer.Complete(ctx, prompt)
}

func (a *Agent) askUser(ctx context.Context, args Args) (any, error) {
	question, err := args.RequireString("question")
	if err != nil {
		return nil, err
	}
	if a.config.ClarifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.ClarifyTimeout)
		defer cancel()
	}
	start := time.Now()
	answer, err := a.human.Ask(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("no answer from the user after %s: %w", time.Since(start).Round(time.Second), err)
	}
	return answer, nil
}

func (a *Agent) addDocument(ctx context.Context, args Args) (any, error) {
	name, err := args.RequireString("name")
	if err != nil {
		return nil, err
	}
	doc, ok := args.String("document")
	if !ok {
		doc = formatValue(args["document"])
	}
	return nil, a.memory.AddDocument(ctx, name, doc)
}

func (a *Agent) queryMemory(ctx context.Context, args Args, query func(context.Context, string) (memory.QueryResult, error)) (any, error) {
	q, err := args.RequireString("query")
	if err != nil {
		return nil, err
	}
	res, err := query(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Map(), nil
}

func (a *Agent) getDocument(ctx context.Context, args Args) (any, error) {
	name, err := args.RequireString("name")
	if err != nil {
		return nil, err
	}
	query, _ := args.String("query")
	maxLength, ok := args.Int("max_length")
	if !ok {
		return nil, fmt.Errorf("argument %q must be an integer", "max_length")
	}
	return a.memory.GetDocument(ctx, name, query, maxLength)
}
