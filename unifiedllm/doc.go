// Package unifiedllm is the completion side of the agent: a provider-agnostic
// Client over gollm with middleware, bounded retry and typed errors.
//
// # Quick Start
//
//	adapter, _ := unifiedllm.NewGollmAdapter("openai", os.Getenv("OPENAI_API_KEY"),
//	    unifiedllm.WithModel("gpt-4"))
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("openai", adapter),
//	    unifiedllm.WithMiddleware(unifiedllm.RateLimitMiddleware(unifiedllm.NewRequestLimiter(60, 1))),
//	)
//	completer := unifiedllm.NewTextCompleter(client, unifiedllm.DefaultCompletionOptions("gpt-4"), nil)
//	text, err := completer.Complete(ctx, "Say hi")
//
// Transient errors (rate limits, 5xx, timeouts, network failures) are retried
// with exponential backoff up to RetryPolicy.MaxRetries; after that the call
// fails with a *RetryExhaustedError.
//
// # Model Catalog
//
// The catalog records each model's token context window and the character
// budget used for the agent's running context:
//
//	budget := unifiedllm.MaxContextChars("gpt-3.5-turbo") // 5000
package unifiedllm
