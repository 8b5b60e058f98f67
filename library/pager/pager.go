// Package pager turns a forward-only cursor query into random-access
// page navigation.
//
// The catalog query engine only answers "give me the page after cursor
// C". Jumping straight to page N therefore requires walking forward
// from page 1, discovering each intermediate cursor. Pager encapsulates
// that walk and memoizes every cursor it has seen, so revisiting a page
// costs a single query.
package pager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Laisky/errors/v2"
)

// defaultEstimatedPages is the initial page-count display hint, grown
// opportunistically as further pages are discovered.
const defaultEstimatedPages = 5

var (
	// ErrNoNextPage is returned by Next on the last page.
	ErrNoNextPage = errors.New("already on the last page")
	// ErrNoPreviousPage is returned by Previous on the first page.
	ErrNoPreviousPage = errors.New("already on the first page")
)

// FetchFunc loads one page. An empty cursor requests the first page.
// It returns the page items and the cursor of the following page, empty
// when this was the last page.
type FetchFunc[T any] func(ctx context.Context, cursor string, pageSize int) (items []T, nextCursor string, err error)

// Option configures a Pager.
type Option[T any] func(*Pager[T])

// WithInvalidCursor installs a predicate recognizing invalid-cursor
// errors from the backend. When a memoized cursor stops resolving
// (most commonly after its boundary record was deleted) the pager
// discards its cache and restarts from page 1 instead of failing.
func WithInvalidCursor[T any](pred func(error) bool) Option[T] {
	return func(p *Pager[T]) {
		p.isInvalidCursor = pred
	}
}

// Pager memoizes the cursor chain of a single (folder, filter)
// combination. Cursors are only valid for the combination they were
// issued for; call Reset whenever the folder or filter changes.
//
// Methods are serialized by an internal mutex. Navigating is readable
// concurrently so a UI can disable jump controls during a discovery
// walk.
type Pager[T any] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]

	pageSize        int
	isInvalidCursor func(error) bool

	// cursorOf maps a page number to the cursor that fetches it.
	// cursorOf[1] is always the empty cursor and is never evicted.
	cursorOf map[int]string
	// history holds the cursors of previously-current pages, LIFO.
	// Previous pops it rather than consulting cursorOf, it must
	// reproduce the exact cursor that was current before.
	history []string

	current       int // 0 until the first page is loaded
	currentCursor string
	lastNext      string
	estimated     int
	lastPage      int // page number of the final page once discovered, 0 unknown

	navigating atomic.Bool
}

// New creates a Pager over fetch with the given page size.
func New[T any](fetch FetchFunc[T], pageSize int, opts ...Option[T]) *Pager[T] {
	p := &Pager[T]{
		fetch:     fetch,
		pageSize:  pageSize,
		cursorOf:  map[int]string{1: ""},
		estimated: defaultEstimatedPages,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// CurrentPage returns the 1-based page number of the last loaded page,
// 0 before any page was loaded.
func (p *Pager[T]) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// EstimatedPages returns the page-count display hint.
func (p *Pager[T]) EstimatedPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.estimated
}

// LastPage returns the page number of the final page, 0 while the end
// of the catalog has not been reached yet.
func (p *Pager[T]) LastPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPage
}

// Navigating reports whether a forward discovery walk is in progress.
// Consumers must not issue jumps beyond the known boundary while true.
func (p *Pager[T]) Navigating() bool {
	return p.navigating.Load()
}

// Reset discards every memoized cursor and reseeds the page-1 state.
// Must be called on any folder or filter change.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Pager[T]) reset() {
	p.cursorOf = map[int]string{1: ""}
	p.history = nil
	p.current = 0
	p.currentCursor = ""
	p.lastNext = ""
	p.estimated = defaultEstimatedPages
	p.lastPage = 0
}

// Next loads the page after the current one.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == 0 {
		return p.goToPage(ctx, 1)
	}
	if p.lastNext == "" {
		return nil, errors.WithStack(ErrNoNextPage)
	}

	p.history = append(p.history, p.currentCursor)
	p.currentCursor = p.lastNext
	p.current++
	items, err := p.load(ctx)
	return items, err
}

// Previous reloads the page visited immediately before the current one.
func (p *Pager[T]) Previous(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.history) == 0 {
		return nil, errors.WithStack(ErrNoPreviousPage)
	}

	p.currentCursor = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	p.current--
	items, err := p.load(ctx)
	return items, err
}

// GoToPage loads page n, walking forward from the current position to
// discover unknown cursors when needed. If the catalog turns out to
// have fewer than n pages the walk stops on the last real page.
// Cancelling ctx abandons a walk; cursors discovered so far stay
// memoized and reusable.
func (p *Pager[T]) GoToPage(ctx context.Context, n int) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.goToPage(ctx, n)
}

func (p *Pager[T]) goToPage(ctx context.Context, n int) ([]T, error) {
	if n < 1 {
		n = 1
	}
	// once the end is known there is no point walking past it
	if p.lastPage > 0 && n > p.lastPage {
		n = p.lastPage
	}

	// reloading the current page does not touch the history
	if n == p.current {
		return p.load(ctx)
	}

	if cursor, ok := p.cursorOf[n]; ok {
		p.currentCursor = cursor
		p.current = n
		p.rebuildHistory()
		return p.load(ctx)
	}

	// page n was never visited; all visited pages are memoized, so a
	// backward jump without a cached cursor can only happen after an
	// external reset. Walk forward from page 1 in that case.
	start := p.current
	if n < p.current || p.current == 0 {
		start = 0
	}
	if start == 0 {
		p.currentCursor = ""
		p.current = 1
		start = 1
	}

	p.navigating.Store(true)
	defer p.navigating.Store(false)

	items, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	for p.current < n {
		if err = ctx.Err(); err != nil {
			p.rebuildHistory()
			return nil, errors.Wrap(err, "abandon page walk")
		}
		if p.lastNext == "" {
			// fewer pages than requested, stay on the last real one
			break
		}

		p.currentCursor = p.lastNext
		p.current++
		if items, err = p.load(ctx); err != nil {
			p.rebuildHistory()
			return nil, err
		}
	}

	p.rebuildHistory()
	return items, nil
}

// load fetches the page at the current cursor and memoizes the
// discovered next cursor.
func (p *Pager[T]) load(ctx context.Context) ([]T, error) {
	items, next, err := p.fetch(ctx, p.currentCursor, p.pageSize)
	if err != nil {
		if p.isInvalidCursor != nil && p.isInvalidCursor(err) && p.currentCursor != "" {
			// the memoized chain went stale, restart from page 1
			p.reset()
			p.current = 1
			return p.load(ctx)
		}

		return nil, errors.Wrapf(err, "fetch page %d", p.current)
	}

	p.lastNext = next
	if next != "" {
		p.cursorOf[p.current+1] = next
		if p.current+1 > p.estimated {
			p.estimated = p.current + 1
		}
	} else {
		p.lastPage = p.current
		p.estimated = p.current
	}

	return items, nil
}

// rebuildHistory replays the memoized cursors of pages 1..current-1 so
// Previous steps back through them in order.
func (p *Pager[T]) rebuildHistory() {
	p.history = p.history[:0]
	for i := 1; i < p.current; i++ {
		cursor, ok := p.cursorOf[i]
		if !ok {
			break
		}
		p.history = append(p.history, cursor)
	}
}
