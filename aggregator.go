package sitesnap

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// PageStore loads and saves page documents. Load reports ok == false when
// no document exists at path.
type PageStore interface {
	Load(path string) (page *document.Page, ok bool, err error)
	Save(page *document.Page, path string) error
}

// Compile-time interface check.
var _ PageStore = document.Store{}

// Placement tells where a result landed.
type Placement struct {
	Index int    // completion index, 0-based
	Page  int    // page number
	Slot  int    // position within the page
	Path  string // page document path
}

// Aggregator assigns results to pages by completion order and re-persists
// the page after every append.
//
// One mutex guards the completion counter and the page cache: the counter
// advances by exactly one per Append, so completion index k always lands in
// page k/pageSize at slot k%pageSize.
type Aggregator struct {
	store    PageStore
	base     string
	pageSize int
	logger   zerolog.Logger

	mu      sync.Mutex
	next    int
	pages   map[int]*document.Page
	touched []string
	seen    map[string]bool
}

// NewAggregator creates an Aggregator writing "<base>(<start>-<end>).md"
// documents through store. pageSize < 1 uses DefaultPageSize.
func NewAggregator(store PageStore, base string, pageSize int, logger zerolog.Logger) *Aggregator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Aggregator{
		store:    store,
		base:     base,
		pageSize: pageSize,
		logger:   logger,
		pages:    make(map[int]*document.Page),
		seen:     make(map[string]bool),
	}
}

// Append records res in the next completion slot. Safe for concurrent use.
// A load or save failure wraps ErrAggregate; the slot stays consumed.
func (a *Aggregator) Append(res CaptureResult) (Placement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.next
	a.next++

	n := idx / a.pageSize
	pl := Placement{
		Index: idx,
		Page:  n,
		Slot:  idx % a.pageSize,
		Path:  document.PagePath(a.base, n, a.pageSize, document.MarkdownExt),
	}
	log := a.logger.With().Int("page", n).Int("index", res.Record.Index).Logger()

	page, err := a.pageFor(n, pl.Path, log)
	if err != nil {
		return pl, fmt.Errorf("%w: %v", ErrAggregate, err)
	}

	page.Append(a.entry(res, pl.Path))
	if err := a.store.Save(page, pl.Path); err != nil {
		log.Error().Err(err).Str("path", pl.Path).Msg("saving page")
		return pl, fmt.Errorf("%w: %v", ErrAggregate, err)
	}
	if !a.seen[pl.Path] {
		a.seen[pl.Path] = true
		a.touched = append(a.touched, pl.Path)
	}
	log.Debug().Str("path", pl.Path).Int("slot", pl.Slot).Msg("page saved")

	if (idx+1)%a.pageSize == 0 {
		delete(a.pages, n)
		log.Debug().Msg("page full, evicted")
	}
	return pl, nil
}

// pageFor returns the resident page n, loading or creating it. Callers hold mu.
func (a *Aggregator) pageFor(n int, path string, log zerolog.Logger) (*document.Page, error) {
	if page, ok := a.pages[n]; ok {
		return page, nil
	}

	page, ok, err := a.store.Load(path)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Info().Str("path", path).Int("entries", page.Entries()).Msg("resuming existing page")
	} else {
		start, end := document.PageRange(n, a.pageSize)
		page = document.NewPage(fmt.Sprintf("%s (%d-%d)", filepath.Base(a.base), start, end))
	}
	a.pages[n] = page
	return page, nil
}

// entry lays out the three core fields, the passthrough columns, and the
// artifact image when it can be read.
func (a *Aggregator) entry(res CaptureResult, pagePath string) document.Entry {
	rec := res.Record
	labels := rec.Labels.WithDefaults()

	fields := make([]document.Field, 0, 3+len(rec.Extra))
	fields = append(fields,
		document.Field{Label: labels.Index, Value: strconv.Itoa(rec.Index)},
		document.Field{Label: labels.Name, Value: rec.Name},
		document.Field{Label: labels.Address, Value: rec.Address},
	)
	for _, f := range rec.Extra {
		fields = append(fields, document.Field{Label: f.Label, Value: f.Value})
	}

	e := document.Entry{Fields: fields, ImageAlt: rec.Name, Details: details(res)}
	if res.ArtifactPath != "" && fileutil.IsReadableFile(res.ArtifactPath) {
		e.ImagePath = document.RelativeImagePath(pagePath, res.ArtifactPath)
	} else {
		a.logger.Warn().Int("index", rec.Index).Str("artifact", res.ArtifactPath).Msg("artifact unreadable, entry written without image")
	}
	return e
}

// details records why an entry shows the placeholder, or where a redirect
// led. Plain successes carry none.
func details(res CaptureResult) []document.Field {
	switch {
	case res.Outcome == OutcomeFallback:
		d := []document.Field{
			{Label: "outcome", Value: res.Outcome.String()},
			{Label: "attempts", Value: strconv.Itoa(res.Attempts)},
			{Label: "url", Value: res.FinalURL},
		}
		if res.Err != nil {
			d = append(d, document.Field{Label: "error", Value: res.Err.Error()})
		}
		return d
	case res.Redirected:
		return []document.Field{{Label: "redirected_to", Value: res.FinalURL}}
	}
	return nil
}

// Count returns how many results were appended.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Pages returns the page documents written by this aggregator, in the order
// they were first touched.
func (a *Aggregator) Pages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.touched))
	copy(out, a.touched)
	return out
}

// Resident returns how many pages are cached in memory.
func (a *Aggregator) Resident() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}
