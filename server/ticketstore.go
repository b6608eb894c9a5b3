// Copyright (c) 2025, Grigory Buteyko aka Hrissan
// Licensed under the MIT License. See LICENSE for details.

package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kvaas/tls13/collaborators"
	"github.com/kvaas/tls13/intrusive"
)

// maxTicketLifetimeSeconds bounds how long an issued ticket is honored,
// independent of whatever ticket_lifetime the server advertised to the
// client in NewSessionTicket; RFC 8446 §4.6.1 caps that advertised value at
// seven days, and the store enforces the same ceiling server-side so a
// ticket can never be looked up after it.
const maxTicketLifetimeSeconds = 7 * 24 * 60 * 60

// ticketEntry is the intrusive.IntrusiveHeapAry node: heapIndex is owned
// entirely by the heap (zero means "not in the heap"), ordered by expiresAt
// so the soonest-to-expire ticket is always at the front.
type ticketEntry struct {
	id        string
	state     collaborators.ResumptionState
	expiresAt int64
	heapIndex int
}

func ticketExpiresBefore(a, b *ticketEntry) bool {
	return a.expiresAt < b.expiresAt
}

// MemoryTicketStore is a process-local collaborators.TicketStore, suitable
// for a single-instance deployment or for tests; a production deployment
// behind more than one server process needs a shared store (database or
// cache) instead. Grounded on the teacher's preference for small,
// dependency-light collaborator implementations (staticcert.go) rather than
// a full persistence layer in the core module itself. Expiry bookkeeping is
// adapted from the teacher's intrusive.IntrusiveHeapAry, which gives O(log n)
// eviction of the soonest-expiring ticket instead of scanning the whole map
// on every Store.
type MemoryTicketStore struct {
	mu      sync.Mutex
	entries map[string]*ticketEntry
	expiry  *intrusive.IntrusiveHeapAry[ticketEntry]
	clock   func() int64
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		entries: make(map[string]*ticketEntry),
		expiry:  intrusive.NewIntrusiveHeapAry[ticketEntry](ticketExpiresBefore, 0),
		clock:   func() int64 { return time.Now().Unix() },
	}
}

// evictExpiredLocked drops every ticket whose expiresAt has passed. Callers
// hold s.mu.
func (s *MemoryTicketStore) evictExpiredLocked() {
	now := s.clock()
	for s.expiry.Len() > 0 && s.expiry.Front().expiresAt <= now {
		front := s.expiry.Front()
		s.expiry.PopFront()
		delete(s.entries, front.id)
	}
}

// Store assigns a fresh random ticket ID via google/uuid, rather than
// deriving one from connection state, so tickets reveal nothing about the
// connection that issued them.
func (s *MemoryTicketStore) Store(ctx context.Context, state collaborators.ResumptionState) ([]byte, error) {
	id := uuid.New()
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}

	entry := &ticketEntry{
		id:        id.String(),
		state:     state,
		expiresAt: s.clock() + maxTicketLifetimeSeconds,
	}

	s.mu.Lock()
	s.evictExpiredLocked()
	s.entries[entry.id] = entry
	s.expiry.Insert(entry, &entry.heapIndex)
	s.mu.Unlock()
	return idBytes, nil
}

func (s *MemoryTicketStore) Lookup(ctx context.Context, ticketID []byte) (collaborators.ResumptionState, bool, error) {
	id, err := uuid.FromBytes(ticketID)
	if err != nil {
		return collaborators.ResumptionState{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	entry, ok := s.entries[id.String()]
	if !ok {
		return collaborators.ResumptionState{}, false, nil
	}
	return entry.state, true, nil
}

// replayEntry is the heap node for MemoryReplayCache's own expiry tracking,
// keyed by PSK binder hash rather than ticket ID.
type replayEntry struct {
	key       string
	expiresAt int64
	heapIndex int
}

func replayExpiresBefore(a, b *replayEntry) bool {
	return a.expiresAt < b.expiresAt
}

// MemoryReplayCache rejects a PSK binder hash it has already seen, per spec
// §6's single-use 0-RTT replay rule. A binder hash can only ever be replayed
// within the lifetime of the ticket it was computed over, so entries are
// evicted after maxTicketLifetimeSeconds via the same intrusive min-heap
// adaptation as MemoryTicketStore, instead of growing the seen-set forever.
type MemoryReplayCache struct {
	mu    sync.Mutex
	seen  map[string]*replayEntry
	order *intrusive.IntrusiveHeapAry[replayEntry]
	clock func() int64
}

func NewMemoryReplayCache() *MemoryReplayCache {
	return &MemoryReplayCache{
		seen:  make(map[string]*replayEntry),
		order: intrusive.NewIntrusiveHeapAry[replayEntry](replayExpiresBefore, 0),
		clock: func() int64 { return time.Now().Unix() },
	}
}

func (c *MemoryReplayCache) evictExpiredLocked() {
	now := c.clock()
	for c.order.Len() > 0 && c.order.Front().expiresAt <= now {
		front := c.order.Front()
		c.order.PopFront()
		delete(c.seen, front.key)
	}
}

func (c *MemoryReplayCache) Check(pskBinderHash []byte) (collaborators.ReplayResult, error) {
	key := string(pskBinderHash)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	if _, ok := c.seen[key]; ok {
		return collaborators.ReplayDuplicate, nil
	}
	entry := &replayEntry{key: key, expiresAt: c.clock() + maxTicketLifetimeSeconds}
	c.seen[key] = entry
	c.order.Insert(entry, &entry.heapIndex)
	return collaborators.ReplayAccepted, nil
}
