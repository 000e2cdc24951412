package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
	"github.com/shivamkjha23-afk/ATR2026/internal/db"
	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
)

// Engine replicates the runtime database to a RemoteStore. Pushes are
// triggered by local replaces and coalesced: one push may be in flight and at
// most one trailing push is pending, so a burst of N local writes costs at
// most two remote round trips. Pulls run once at startup, on a fixed timer
// and whenever the remote meta document changes.
type Engine struct {
	store       *core.Store
	remote      db.RemoteStore
	log         *zap.Logger
	chunkBudget int
	poll        time.Duration

	kick   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	pullMu sync.Mutex
}

// New builds a replication engine. The remote store is the authenticated
// session gate: construction fails rather than ever writing anonymously.
func New(store *core.Store, remote db.RemoteStore, chunkBudget int, poll time.Duration, log *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if remote == nil {
		return nil, errors.New("remote store is required: cloud sync needs an authenticated session")
	}
	if chunkBudget <= 0 {
		return nil, fmt.Errorf("chunk budget %d out of range", chunkBudget)
	}
	if poll <= 0 {
		return nil, fmt.Errorf("poll interval %s out of range", poll)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:       store,
		remote:      remote,
		log:         log,
		chunkBudget: chunkBudget,
		poll:        poll,
		kick:        make(chan struct{}, 1),
	}, nil
}

// Start registers the engine as the store's replicator, performs the initial
// cloud adoption (or seeding) and launches the background loops.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.store.SetReplicator(e.SchedulePush)
	e.initialLoad(ctx)

	e.wg.Add(3)
	go e.pushLoop(ctx)
	go e.pollLoop(ctx)
	go e.watchLoop(ctx)
}

// Stop halts the background loops and waits for them to finish. The store
// keeps working local-only afterwards.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.store.SetReplicator(nil)
	e.wg.Wait()
}

// SchedulePush requests a cloud push. Safe to call from any goroutine; calls
// made while a push is in flight collapse into a single trailing push.
func (e *Engine) SchedulePush() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// SyncNow runs one immediate pull-then-push cycle and returns the first
// error. Used by the manual sync trigger.
func (e *Engine) SyncNow(ctx context.Context) error {
	if err := e.pullOnce(ctx); err != nil {
		return err
	}
	return e.pushOnce(ctx)
}

// initialLoad adopts the cloud database wholesale when it exists, otherwise
// seeds the cloud with local state. A transient failure leaves the local
// snapshot in charge; the poll loop retries from there.
func (e *Engine) initialLoad(ctx context.Context) {
	meta, err := e.remote.LoadMeta(ctx)
	if err != nil {
		e.store.ReportSync(false, fmt.Sprintf("cloud read failed, using local cache: %v", err))
		return
	}
	if meta == nil || meta.StorageFormat != db.StorageFormatChunked {
		// First run (or a superseded storage layout): seed the cloud.
		e.SchedulePush()
		return
	}
	chunks, err := e.remote.LoadChunks(ctx)
	if err != nil {
		e.store.ReportSync(false, fmt.Sprintf("cloud read failed, using local cache: %v", err))
		return
	}
	e.store.AdoptRemote(Reassemble(chunks, *meta))
	e.store.ReportSync(true, "cloud database loaded")
}

func (e *Engine) pushLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			if err := e.pushOnce(ctx); err != nil && ctx.Err() == nil {
				e.store.ReportSync(false, fmt.Sprintf("cloud push failed: %v", err))
			}
		}
	}
}

func (e *Engine) pollLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.pullOnce(ctx); err != nil && ctx.Err() == nil {
				e.store.ReportSync(false, fmt.Sprintf("cloud pull failed: %v", err))
			}
		}
	}
}

// watchLoop subscribes to the remote meta document so a change on another
// client triggers an immediate pull without waiting for the timer.
func (e *Engine) watchLoop(ctx context.Context) {
	defer e.wg.Done()
	err := e.remote.WatchMeta(ctx, func() {
		if err := e.pullOnce(ctx); err != nil && ctx.Err() == nil {
			e.store.ReportSync(false, fmt.Sprintf("cloud pull failed: %v", err))
		}
	})
	if err != nil && ctx.Err() == nil {
		e.log.Warn("meta listener stopped, falling back to polling", zap.Error(err))
	}
}

// pushOnce replicates the current local state. The snapshot is taken at push
// start; the coalescing contract guarantees the last local state wins the
// next push.
func (e *Engine) pushOnce(ctx context.Context) error {
	database := e.store.Read()
	chunks := BuildChunks(database, e.chunkBudget)
	if err := e.remote.Replace(ctx, chunks, BuildMeta(database)); err != nil {
		return err
	}
	e.store.ReportSync(true, fmt.Sprintf("cloud sync complete (%d chunks)", len(chunks)))
	return nil
}

// pullOnce adopts the remote snapshot iff its last_updated stamp is strictly
// newer than the local one. Otherwise local state is authoritative and left
// untouched.
func (e *Engine) pullOnce(ctx context.Context) error {
	e.pullMu.Lock()
	defer e.pullMu.Unlock()

	meta, err := e.remote.LoadMeta(ctx)
	if err != nil {
		return err
	}
	if meta == nil || meta.StorageFormat != db.StorageFormatChunked {
		return nil
	}
	if !identity.StampAfter(meta.LastUpdated, e.store.LastUpdated()) {
		return nil
	}
	chunks, err := e.remote.LoadChunks(ctx)
	if err != nil {
		return err
	}
	e.store.AdoptRemote(Reassemble(chunks, *meta))
	e.store.ReportSync(true, fmt.Sprintf("cloud update received (remote %s)", meta.LastUpdated))
	return nil
}
