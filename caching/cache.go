// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package caching

import (
	"sync"
	"sync/atomic"
)

// Observer is notified after every successful record insert. Used by
// the evictor and the sender to wake up without polling. The callback
// runs outside all cache locks, so an observer may call back into the
// Cache.
type Observer interface {
	RecordAdded()
}

// Cache is the registry of session buffers. A buffer is created
// implicitly on the first write for an unseen session identifier and
// destroyed only by DeleteEntry — never by eviction.
//
// The registry lock is independent of each buffer's internal lock:
// looking up session A never contends with mutating session B.
type Cache struct {
	mu      sync.RWMutex
	buffers map[int32]*SessionBuffer

	// observers is append-only for the cache's lifetime.
	observers []Observer

	// totalBytes equals the sum of all attached buffers' byte sizes.
	// Buffers update it inside their own critical sections.
	totalBytes atomic.Int64
}

// NewCache creates an empty beacon cache.
func NewCache() *Cache {
	return &Cache{buffers: make(map[int32]*SessionBuffer)}
}

// AddObserver registers an observer for insert notifications.
// Registration is append-only; there is no unregister.
func (c *Cache) AddObserver(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// AddEventData adds serialized event data for the given session,
// creating its buffer on first write, then notifies all observers.
func (c *Cache) AddEventData(sessionID int32, timestamp int64, data string) {
	c.getOrCreate(sessionID).AddRecord(KindEvent, timestamp, data)
	c.notifyObservers()
}

// AddActionData adds serialized action data for the given session,
// creating its buffer on first write, then notifies all observers.
func (c *Cache) AddActionData(sessionID int32, timestamp int64, data string) {
	c.getOrCreate(sessionID).AddRecord(KindAction, timestamp, data)
	c.notifyObservers()
}

// DeleteEntry removes and discards the session's buffer. No-op when
// the session is absent. Safe to call while a delivery round is in
// progress: a sender holding the buffer finishes its operations on a
// detached buffer, but no new lookup finds it.
func (c *Cache) DeleteEntry(sessionID int32) {
	c.mu.Lock()
	buffer, ok := c.buffers[sessionID]
	if ok {
		delete(c.buffers, sessionID)
	}
	c.mu.Unlock()

	if ok {
		buffer.detachGlobal()
	}
}

// NextBeaconChunk returns the session's next chunk for transmission,
// or the empty string when the session is absent or has no more data
// to send. Must only be called from the sender goroutine.
func (c *Cache) NextBeaconChunk(sessionID int32, prefix string, maxSize int, delimiter string) string {
	buffer := c.lookup(sessionID)
	if buffer == nil {
		return ""
	}
	return buffer.NextChunk(prefix, maxSize, delimiter)
}

// RemoveChunkedData commits the session's delivery round, permanently
// dropping all data already returned in chunks. Call only after the
// backend confirmed receipt. No-op when the session is absent. Must
// only be called from the sender goroutine.
func (c *Cache) RemoveChunkedData(sessionID int32) {
	if buffer := c.lookup(sessionID); buffer != nil {
		buffer.Commit()
	}
}

// ResetChunkedData rolls the session's delivery round back, making
// all of the round's data eligible for re-delivery and eviction. Call
// when transmission failed. No-op when the session is absent. Must
// only be called from the sender goroutine.
func (c *Cache) ResetChunkedData(sessionID int32) {
	if buffer := c.lookup(sessionID); buffer != nil {
		buffer.Rollback()
	}
}

// EvictRecordsByAge removes the session's staged records older than
// minTimestamp and returns the count removed. Returns 0 when the
// session is absent.
func (c *Cache) EvictRecordsByAge(sessionID int32, minTimestamp int64) int {
	buffer := c.lookup(sessionID)
	if buffer == nil {
		return 0
	}
	return buffer.EvictByAge(minTimestamp)
}

// EvictRecordsByNumber removes up to numRecords of the session's
// oldest staged records and returns the count removed. Returns 0 when
// the session is absent.
func (c *Cache) EvictRecordsByNumber(sessionID int32, numRecords int) int {
	buffer := c.lookup(sessionID)
	if buffer == nil {
		return 0
	}
	return buffer.EvictByCount(numRecords)
}

// BeaconIDs returns a point-in-time copy of the current session
// identifiers. Later cache mutations are not reflected in the
// returned slice.
func (c *Cache) BeaconIDs() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int32, 0, len(c.buffers))
	for id := range c.buffers {
		ids = append(ids, id)
	}
	return ids
}

// NumBytesInCache returns the payload byte total across all sessions.
func (c *Cache) NumBytesInCache() int64 {
	return c.totalBytes.Load()
}

// IsEmpty reports whether the session's buffer holds no records.
// Returns false when the session is absent: absence is not the same
// as an empty buffer, and callers are expected to check BeaconIDs
// membership first. This asymmetry is long-standing observable API
// behavior; see the package tests that pin it.
func (c *Cache) IsEmpty(sessionID int32) bool {
	buffer := c.lookup(sessionID)
	if buffer == nil {
		return false
	}
	return buffer.IsEmpty()
}

// lookup returns the session's buffer or nil.
func (c *Cache) lookup(sessionID int32) *SessionBuffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buffers[sessionID]
}

// getOrCreate returns the session's buffer, creating and attaching it
// on first write.
func (c *Cache) getOrCreate(sessionID int32) *SessionBuffer {
	if buffer := c.lookup(sessionID); buffer != nil {
		return buffer
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if buffer, ok := c.buffers[sessionID]; ok {
		return buffer
	}
	buffer := NewSessionBuffer()
	buffer.attachGlobal(&c.totalBytes)
	c.buffers[sessionID] = buffer
	return buffer
}

// notifyObservers fans out the insert notification. The observer list
// is copied under the read lock and invoked outside it so callbacks
// can re-enter the cache without deadlocking.
func (c *Cache) notifyObservers() {
	c.mu.RLock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.RUnlock()

	for _, observer := range observers {
		observer.RecordAdded()
	}
}
