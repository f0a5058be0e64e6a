package dataset

import "context"

// claim marks an id whose fetch is in progress. done is closed once err is
// final.
type claim struct {
	done chan struct{}
	err  error
}

func (c *claim) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claims tracks in-flight fetches keyed by id. All methods require Store.mu.
type claims map[string]*claim

// acquire returns the claim for id and whether the caller now owns it.
func (cs *claims) acquire(id string) (*claim, bool) {
	if *cs == nil {
		*cs = make(claims)
	}
	if c, ok := (*cs)[id]; ok {
		return c, false
	}
	c := &claim{done: make(chan struct{})}
	(*cs)[id] = c
	return c, true
}

// release publishes the owner's outcome and forgets the claim. A failed id
// can be claimed again by a later caller.
func (cs *claims) release(id string, c *claim, err error) {
	c.err = err
	delete(*cs, id)
	close(c.done)
}
