package subscription

import (
	"sync"

	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Subscription Index
//
// Key -> record mapping shared by the command dispatcher (mutations) and
// the push scheduler (iteration). All access goes through the mutex; no
// raw map ever leaves this package.
// -----------------------------------------------------------------------------

// Subscriber is the delivery endpoint of one client connection.
type Subscriber interface {
	// ID uniquely identifies the connection for membership tracking.
	ID() string

	// Deliver enqueues one outbound frame. An error means the connection
	// is unusable and should be pruned.
	Deliver(payload interface{}) error
}

// -----------------------------------------------------------------------------

type record struct {
	key        Key
	feed       FeedType
	terminalID int64
	params     map[string]string
	frequency  int64
	lastPush   int64
	subs       map[string]Subscriber
}

// -----------------------------------------------------------------------------

// DueFeed is a snapshot of one record whose throttle window has elapsed.
type DueFeed struct {
	Key         Key
	Feed        FeedType
	TerminalID  int64
	Params      map[string]string
	Subscribers []Subscriber
}

// -----------------------------------------------------------------------------

type Index struct {
	mu      sync.RWMutex
	records map[Key]*record
}

// -----------------------------------------------------------------------------

func NewIndex() *Index {
	return &Index{records: make(map[Key]*record)}
}

// -----------------------------------------------------------------------------

// Subscribe adds sub to the record for key, creating the record when the
// key is unseen. Repeated subscribes from the same connection are
// idempotent; the frequency is overwritten either way. Returns true when
// the record was created.
func (ix *Index) Subscribe(key Key, feed FeedType, terminalID int64, params map[string]string, frequency int64, nowMs int64, sub Subscriber) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.records[key]
	if !ok {
		rec = &record{
			key:        key,
			feed:       feed,
			terminalID: terminalID,
			params:     params,
			frequency:  frequency,
			// Throttle from the moment of subscription, not from zero:
			// the first push waits a full frequency window.
			lastPush: nowMs,
			subs:     make(map[string]Subscriber),
		}
		ix.records[key] = rec
	}

	rec.frequency = frequency
	rec.subs[sub.ID()] = sub
	return !ok
}

// -----------------------------------------------------------------------------

// Unsubscribe removes sub from the record for key. Idempotent: a missing
// record or membership is not an error. The record is deleted the moment
// its connection set becomes empty. Returns true when a membership was
// actually removed.
func (ix *Index) Unsubscribe(key Key, subID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.records[key]
	if !ok {
		return false
	}
	if _, member := rec.subs[subID]; !member {
		return false
	}

	delete(rec.subs, subID)
	if len(rec.subs) == 0 {
		delete(ix.records, key)
	}
	return true
}

// -----------------------------------------------------------------------------

// UpdateFrequency mutates the frequency of an existing record, but only
// when the calling connection is a member. Returns false otherwise.
func (ix *Index) UpdateFrequency(key Key, subID string, frequency int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.records[key]
	if !ok {
		return false
	}
	if _, member := rec.subs[subID]; !member {
		return false
	}

	rec.frequency = frequency
	return true
}

// -----------------------------------------------------------------------------

// ListFor enumerates all records containing the given connection.
func (ix *Index) ListFor(subID string) []models.MSubscriptionInfo {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]models.MSubscriptionInfo, 0)
	for _, rec := range ix.records {
		if _, member := rec.subs[subID]; !member {
			continue
		}
		params := make(map[string]string, len(rec.params))
		for k, v := range rec.params {
			params[k] = v
		}
		out = append(out, models.MSubscriptionInfo{
			DataType:  string(rec.feed),
			Params:    params,
			Frequency: rec.frequency,
		})
	}
	return out
}

// -----------------------------------------------------------------------------

// RemoveSubscriber removes the connection from every record it belongs
// to, deleting records drained to zero. Called on disconnect. Returns the
// number of memberships removed.
func (ix *Index) RemoveSubscriber(subID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	for key, rec := range ix.records {
		if _, member := rec.subs[subID]; !member {
			continue
		}
		delete(rec.subs, subID)
		removed++
		if len(rec.subs) == 0 {
			delete(ix.records, key)
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// Due snapshots every record whose throttle window has elapsed at nowMs.
// The scheduler iterates the returned copies, so dispatcher mutations
// during a push cycle never race the iteration.
func (ix *Index) Due(nowMs int64) []DueFeed {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	due := make([]DueFeed, 0)
	for _, rec := range ix.records {
		if nowMs-rec.lastPush < rec.frequency {
			continue
		}
		subs := make([]Subscriber, 0, len(rec.subs))
		for _, s := range rec.subs {
			subs = append(subs, s)
		}
		due = append(due, DueFeed{
			Key:         rec.key,
			Feed:        rec.feed,
			TerminalID:  rec.terminalID,
			Params:      rec.params,
			Subscribers: subs,
		})
	}
	return due
}

// -----------------------------------------------------------------------------

// MarkPushed advances the throttle timestamp after a successful fetch.
// Fetch failures skip this call so the record retries next tick.
func (ix *Index) MarkPushed(key Key, nowMs int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if rec, ok := ix.records[key]; ok {
		rec.lastPush = nowMs
	}
}

// -----------------------------------------------------------------------------

// LastPush returns the throttle timestamp of a record, for health
// introspection and tests.
func (ix *Index) LastPush(key Key) (int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rec, ok := ix.records[key]
	if !ok {
		return 0, false
	}
	return rec.lastPush, true
}

// -----------------------------------------------------------------------------

// SubscriberCount returns the connection count of a record, zero when the
// key is not present.
func (ix *Index) SubscriberCount(key Key) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rec, ok := ix.records[key]
	if !ok {
		return 0
	}
	return len(rec.subs)
}

// -----------------------------------------------------------------------------

// Len returns the number of live subscription records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}
