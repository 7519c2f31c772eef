package client

import (
	"context"
	"sync"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/scope"
)

// staggerDelay is applied per worker index at pool startup to avoid a
// thundering herd of simultaneous first requests.
const staggerDelay = 10 * time.Millisecond

// BatchRequest pairs one logical request with the explicit scope it
// carries, instead of a thread-local. DoBatch passes only Request to Do;
// Scope is not read by the workers and is not sent with the request.
type BatchRequest struct {
	Request Request
	Scope   scope.Scope
}

// BatchResult pairs a Result with the index of its originating request,
// so callers can reassemble responses in input order.
type BatchResult struct {
	Index  int
	Result Result
}

// DoBatch submits every request in reqs to a bounded worker pool and
// returns one Result per request, reassembled in input order. A
// failing worker produces a failure Result for its own request; it
// never poisons peers.
func (c *Client) DoBatch(ctx context.Context, reqs []BatchRequest) []Result {
	if len(reqs) == 0 {
		return nil
	}

	results := make([]Result, len(reqs))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := c.maxWorkers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()

			select {
			case <-time.After(time.Duration(workerIndex) * staggerDelay):
			case <-ctx.Done():
				return
			}

			for idx := range jobs {
				results[idx] = c.Do(ctx, reqs[idx].Request)
			}
		}(w)
	}

	for i := range reqs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			results[i] = Result{Status: StatusNonRetryable, Err: ctx.Err()}
		}
	}
	close(jobs)

	wg.Wait()
	return results
}
