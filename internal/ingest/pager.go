package ingest

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/inkdex/ingest-cli/pkg/places"
)

// pager iterates the pages of one rectangle search:
//
//	for pg.Next(ctx) {
//		handle(pg.Page())
//	}
//	if err := pg.Err(); err != nil { ... }
//
// Iteration stops after maxPages regardless of what tokens the upstream
// keeps returning.
type pager struct {
	client   places.Client
	limiter  *rate.Limiter
	req      places.SearchRequest
	maxPages int

	page  *places.SearchPage
	pages int
	calls int
	token string
	done  bool
	err   error
}

func newPager(client places.Client, limiter *rate.Limiter, req places.SearchRequest, maxPages int) *pager {
	return &pager{client: client, limiter: limiter, req: req, maxPages: maxPages}
}

// Next fetches the next page, waiting on the rate limiter first. It
// returns false when iteration is finished, normally or on error.
func (p *pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if p.pages >= p.maxPages {
		p.done = true
		return false
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.err = err
			return false
		}
	}

	req := p.req
	req.PageToken = p.token
	page, err := p.client.SearchRectangle(ctx, req)
	p.calls++
	if err != nil {
		p.err = err
		return false
	}

	p.page = page
	p.pages++
	p.token = page.NextPageToken
	if p.token == "" {
		p.done = true
	}
	return true
}

// Page returns the page fetched by the last successful Next.
func (p *pager) Page() *places.SearchPage { return p.page }

// Err returns the error that terminated iteration, if any.
func (p *pager) Err() error { return p.err }

// Calls returns the number of API calls made, including a failed one.
func (p *pager) Calls() int { return p.calls }
