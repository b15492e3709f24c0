// Package agentloop drives a language model toward a natural-language
// objective one action at a time.
//
// Each step renders a prompt holding the objective, the available actions,
// the memory documents, the commands taken so far and the running context.
// The model answers with a single JSON command:
//
//	{"thoughts": {"text": "...", "reasoning": "..."},
//	 "command": {"action": "name", "args": [...], "kwargs": {...}}}
//
// The command is validated, its {{document}} references are resolved from
// memory, and the named action is invoked. A non-nil result is stored in
// memory as "<action>_result_<n>". Malformed responses and failing actions
// are fed back to the model as context on the next step; only a completion
// failure or cancellation stops a run early.
//
// # Quick Start
//
//	store, _ := memory.NewStore(ctx, retriever, nil)
//	agent, err := agentloop.New("Say hi", completer, store,
//	    agentloop.WithActions(agentloop.Action{
//	        Name:        "say_hi",
//	        Description: "Print a greeting.",
//	        Func: func(ctx context.Context, args agentloop.Args) (any, error) {
//	            fmt.Println("hi")
//	            return nil, nil
//	        },
//	    }))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Close()
//
//	res, err := agent.Run(ctx)
//	fmt.Println(res.Outcome, res.Steps)
//
// A run can be saved with SaveActions and replayed later with LoadActionLog,
// FromActionLog and Replay.
package agentloop
