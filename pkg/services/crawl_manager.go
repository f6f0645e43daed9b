package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// crawlManager serializes crawl work per source and bounds crawl
// concurrency across sources. Every source has one slot: a refresh takes
// it non-blocking and fails fast when it is busy, a delete cancels the
// holder and then waits for it.
type crawlManager struct {
	mu        sync.Mutex
	slots     map[uuid.UUID]*sourceSlot
	semaphore chan struct{}
}

type sourceSlot struct {
	busy   sync.Mutex
	cancel context.CancelFunc
}

func newCrawlManager(maxConcurrentCrawls int) *crawlManager {
	if maxConcurrentCrawls < 1 {
		maxConcurrentCrawls = 1
	}
	return &crawlManager{
		slots:     make(map[uuid.UUID]*sourceSlot),
		semaphore: make(chan struct{}, maxConcurrentCrawls),
	}
}

func (m *crawlManager) slot(sourceID uuid.UUID) *sourceSlot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[sourceID]
	if !ok {
		s = &sourceSlot{}
		m.slots[sourceID] = s
	}
	return s
}

// beginCrawl claims the source's slot and a global concurrency token.
// It returns a cancellable context for the crawl and a release func the
// caller must invoke when the crawl ends. A busy slot returns
// apperrors.ErrCrawlInProgress immediately.
func (m *crawlManager) beginCrawl(ctx context.Context, sourceID uuid.UUID) (context.Context, func(), error) {
	slot := m.slot(sourceID)
	if !slot.busy.TryLock() {
		return nil, nil, fmt.Errorf("source %s: %w", sourceID, apperrors.ErrCrawlInProgress)
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	slot.cancel = cancel
	m.mu.Unlock()

	// The cancel hook is registered before waiting for capacity so a
	// deletion can abort a crawl that is still queued.
	select {
	case m.semaphore <- struct{}{}:
	case <-crawlCtx.Done():
		m.mu.Lock()
		slot.cancel = nil
		m.mu.Unlock()
		cancel()
		slot.busy.Unlock()
		return nil, nil, fmt.Errorf("crawl of source %s cancelled while queued: %w", sourceID, crawlCtx.Err())
	}

	release := func() {
		m.mu.Lock()
		slot.cancel = nil
		m.mu.Unlock()
		cancel()
		<-m.semaphore
		slot.busy.Unlock()
	}
	return crawlCtx, release, nil
}

// cancelAndLock aborts any in-flight crawl of the source and blocks until
// its slot is free, then holds the slot. The returned func releases the
// slot and retires it.
func (m *crawlManager) cancelAndLock(sourceID uuid.UUID) func() {
	slot := m.slot(sourceID)

	m.mu.Lock()
	if slot.cancel != nil {
		slot.cancel()
	}
	m.mu.Unlock()

	slot.busy.Lock()
	return func() {
		m.mu.Lock()
		delete(m.slots, sourceID)
		m.mu.Unlock()
		slot.busy.Unlock()
	}
}
