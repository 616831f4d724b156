package render

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FocuswithJustin/lexpub/core/collation"
	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/publication"
	"github.com/FocuswithJustin/lexpub/internal/logging"
)

// Recorder receives batch measurements. Implementations must be safe for
// concurrent use; ObserveEntry is called from workers.
type Recorder interface {
	ObserveEntry(backend string, d time.Duration, err error)
	ObserveBatch(backend string, entries int, d time.Duration, cancelled bool)
}

// Options configures a batch.
type Options struct {
	// Workers is the number of rendering goroutines; 0 means one per CPU.
	Workers int
	// Collation enables letter headers. Nil renders no headers.
	Collation *collation.Collation
	// Abbreviations are passed to every pipeline (see WithAbbreviations).
	Abbreviations map[string]string
	Recorder      Recorder
}

// Result is the assembled output of a batch.
type Result struct {
	// Fragments holds letter headers and entries in output order.
	Fragments []Fragment
	// Entries counts rendered entries; Headers counts letter headers.
	Entries int
	Headers int
	// Cancelled is set when the batch stopped early. Fragments then hold
	// the entries before the first one that was not rendered.
	Cancelled bool
}

// Batch renders a fixed list of entries in parallel. The view must not be
// refreshed while a batch is running.
type Batch struct {
	entries []lexicon.Handle
	root    *config.Node
	view    *publication.View
	factory Factory
	opts    Options

	position  atomic.Int64
	cancelled atomic.Bool
	mu        sync.Mutex
	stop      context.CancelFunc
}

// NewBatch prepares a batch. Nothing runs until Run.
func NewBatch(entries []lexicon.Handle, root *config.Node, view *publication.View, factory Factory, opts Options) *Batch {
	return &Batch{entries: entries, root: root, view: view, factory: factory, opts: opts}
}

// RenderBatch renders entries and assembles them in order, inserting a
// letter header before each entry whose lead letter differs from the
// previous header. Entries that fail are reported in a *errors.BatchError
// returned alongside the result of their siblings.
func RenderBatch(ctx context.Context, entries []lexicon.Handle, root *config.Node, view *publication.View, factory Factory, opts Options) (*Result, error) {
	return NewBatch(entries, root, view, factory, opts).Run(ctx)
}

// Position returns how many entries have been rendered or have failed.
func (b *Batch) Position() int { return int(b.position.Load()) }

// Total returns the number of entries in the batch.
func (b *Batch) Total() int { return len(b.entries) }

// Cancel asks the batch to stop. Workers finish the entry in hand and
// take no more; it is safe to call from any goroutine, before or during Run.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		b.stop()
	}
}

type entryResult struct {
	done     bool
	content  Fragment
	headword string
	letter   string
	err      error
}

// Run renders the batch. It blocks until every worker has stopped.
func (b *Batch) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	b.mu.Lock()
	b.stop = stop
	b.mu.Unlock()
	if b.cancelled.Load() {
		stop()
	}

	workers := b.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(b.entries) {
		workers = len(b.entries)
	}
	assembler := b.factory()
	logging.BatchStarted(ctx, assembler.Name(), len(b.entries), workers)

	results := make([]entryResult, len(b.entries))
	jobs := make(chan int)
	fields := NewFieldCache()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := NewPipeline(b.view, b.factory(), WithFieldCache(fields), WithAbbreviations(b.opts.Abbreviations))
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[idx] = b.renderOne(p, b.entries[idx])
				b.position.Add(1)
			}
		}()
	}

feed:
	for i := range b.entries {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	res, failures := b.assemble(ctx, assembler, results)
	if b.opts.Recorder != nil {
		b.opts.Recorder.ObserveBatch(assembler.Name(), res.Entries, time.Since(start), res.Cancelled)
	}
	logging.BatchFinished(ctx, res.Entries, len(failures.Failures), res.Cancelled, time.Since(start))
	return res, failures.ErrOrNil()
}

func (b *Batch) renderOne(p *Pipeline, entry lexicon.Handle) entryResult {
	start := time.Now()
	r := entryResult{done: true}
	r.content, r.err = p.RenderContent(entry, b.root)
	if r.err == nil {
		r.headword, r.err = b.view.HeadwordText(entry, b.headwordWS())
	}
	if r.err == nil && b.opts.Collation != nil {
		r.letter = b.opts.Collation.LeadLetter(r.headword)
		if encoding.ValidText(r.letter) != nil {
			r.letter = ""
		}
	}
	if b.opts.Recorder != nil {
		b.opts.Recorder.ObserveEntry(p.Backend().Name(), time.Since(start), r.err)
	}
	return r
}

func (b *Batch) headwordWS() string {
	if b.opts.Collation != nil {
		return b.opts.Collation.WritingSystem()
	}
	return ""
}

// assemble walks the results in index order. It stops at the first entry
// that was never rendered, which only happens after cancellation.
func (b *Batch) assemble(ctx context.Context, backend Backend, results []entryResult) (*Result, *errors.BatchError) {
	res := &Result{Fragments: make([]Fragment, 0, len(results))}
	failures := &errors.BatchError{}
	var seq *collation.Sequencer
	if b.opts.Collation != nil {
		seq = b.opts.Collation.NewSequencer()
	}
	class := b.root.ClassName()

	for i, r := range results {
		if !r.done {
			res.Cancelled = true
			break
		}
		if r.err != nil {
			failures.Add(i, int64(b.entries[i]), r.err)
			logging.EntryFailed(ctx, i, int64(b.entries[i]), r.err)
			continue
		}
		meta := EntryMeta{Handle: b.entries[i], Class: class, Index: i, Headword: r.headword, Letter: r.letter}
		if seq != nil {
			if header, changed := seq.Next(r.letter); changed {
				meta.LetterHead = header
				if hf := backend.LetterHeader(header); !hf.IsEmpty() {
					res.Fragments = append(res.Fragments, hf)
				}
				res.Headers++
			}
		}
		res.Fragments = append(res.Fragments, backend.Entry(meta, r.content))
		res.Entries++
	}
	return res, failures
}
