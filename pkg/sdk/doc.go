// Package nexusrag embeds the nexusrag retrieval and campaign planning engine
// in a Go program, without running the HTTP service.
//
// A Client owns an in-memory document store, a CRM customer base and the
// planning pipeline. Embeddings come from a caller-supplied Embedder or an
// OpenAI-compatible API; when neither is available, or the provider fails,
// a deterministic hash embedding keeps retrieval working and results are
// flagged as degraded.
//
//	client, _ := nexusrag.New(ctx,
//	    nexusrag.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-small", 1536),
//	)
//	_, _ = client.Customers().Index(ctx)
//	plan, _ := client.CreatePlan(ctx, nexusrag.PlanRequest{
//	    Objective: "Launch a security awareness campaign for enterprise accounts",
//	    Budget:    50000,
//	})
//
// Documents can be stored and searched directly:
//
//	_, _ = client.Documents().Put(ctx, nexusrag.Document{ID: "faq-1", Content: "..."})
//	res, _ := client.Search(ctx, "refund policy", 5, map[string]any{"kind": "faq"})
package nexusrag
