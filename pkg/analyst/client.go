package analyst

import "context"

// Client is the LLM Analyst Client's contract. Implementations must be
// stateless — a retried call with the same Request must be safe to issue
// again (spec §4.6: "It is stateless: retries are safe").
type Client interface {
	Analyse(ctx context.Context, req Request) (Response, error)
}
