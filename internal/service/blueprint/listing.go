package blueprint

import (
	"context"
	"sync"
	"time"

	"coipond/internal/config"
	models "coipond/internal/domain/models/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/session"
)

// ListingUpdate is delivered for every dispatch that was not superseded
type ListingUpdate struct {
	Seq     uint64
	Request models.SearchRequest
	Results *models.SearchResults
	Err     error
}

// Listing is the browsing state behind a blueprint list: sort key, owner
// filter, query text and page. Typed queries are debounced; every other change
// dispatches at once. Only the newest dispatch is ever delivered.
type Listing struct {
	ctx      context.Context
	searcher bpSvc.Searcher
	sess     *session.Session
	debounce time.Duration
	deliver  func(ListingUpdate)

	mu      sync.Mutex
	state   models.SearchRequest
	pending *time.Timer
	seq     uint64
	closed  bool

	deliverMu sync.Mutex
}

// NewListing creates a listing with default sort and no filters. deliver is
// called from a background goroutine, one update at a time.
func NewListing(ctx context.Context, searcher bpSvc.Searcher, sess *session.Session, debounce time.Duration, deliver func(ListingUpdate)) *Listing {
	if debounce <= 0 {
		debounce = config.SearchDebounceInterval
	}
	l := &Listing{
		ctx:      ctx,
		searcher: searcher,
		sess:     sess,
		debounce: debounce,
		deliver:  deliver,
	}
	l.state.ApplyDefaults()
	return l
}

// State returns the current request
func (l *Listing) State() models.SearchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Refresh dispatches the current request
func (l *Listing) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dispatchLocked()
}

// SetQuery records typed text. The search runs once the text has been stable
// for the debounce interval, starting again from the first page.
func (l *Listing) SetQuery(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.pending != nil {
		l.pending.Stop()
	}
	l.pending = time.AfterFunc(l.debounce, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.pending = nil
		l.state.Query = query
		l.state.Page = 0
		l.dispatchLocked()
	})
}

// SetSort changes the sort key and returns to the first page
func (l *Listing) SetSort(field models.SortField, direction models.Direction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.SortField = field
	l.state.Direction = direction
	l.state.Page = 0
	l.dispatchLocked()
}

// SetOwner restricts the listing to one owner, or everyone for ""
func (l *Listing) SetOwner(owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.OwnerFilter = owner
	l.state.Page = 0
	l.dispatchLocked()
}

// SetPage moves to a zero-based page
func (l *Listing) SetPage(page int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Page = page
	l.dispatchLocked()
}

// Close drops any pending query and all in-flight results
func (l *Listing) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.seq++
	if l.pending != nil {
		l.pending.Stop()
		l.pending = nil
	}
}

func (l *Listing) dispatchLocked() {
	if l.closed {
		return
	}
	l.seq++
	seq := l.seq
	req := l.state

	go func() {
		res, err := l.searcher.Search(l.ctx, l.sess, &req)

		l.deliverMu.Lock()
		defer l.deliverMu.Unlock()

		l.mu.Lock()
		current := seq == l.seq
		l.mu.Unlock()
		if !current {
			return
		}

		l.deliver(ListingUpdate{Seq: seq, Request: req, Results: res, Err: err})
	}()
}
