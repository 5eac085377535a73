package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/civitasdev/civitas/internal/govern"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and the wizard
// preview; production deployments point at a real document store.
type Memory struct {
	mu   sync.Mutex
	docs map[govern.DocKind]map[string]govern.Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: map[govern.DocKind]map[string]govern.Document{}}
}

var _ Store = (*Memory)(nil)

// Create inserts a document, enforcing the unique community index for
// guild records.
func (m *Memory) Create(_ context.Context, doc govern.Document) error {
	if doc.DocID() == "" {
		return fmt.Errorf("store: document id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kind := doc.DocKind()
	bucket := m.docs[kind]
	if bucket == nil {
		bucket = map[string]govern.Document{}
		m.docs[kind] = bucket
	}
	if _, exists := bucket[doc.DocID()]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicate, kind, doc.DocID())
	}
	if guild, ok := doc.(govern.Guild); ok {
		for _, existing := range bucket {
			if existing.(govern.Guild).CommunityID == guild.CommunityID {
				return fmt.Errorf("%w: community %s", ErrDuplicate, guild.CommunityID)
			}
		}
	}
	bucket[doc.DocID()] = doc
	return nil
}

// FindOne returns the document or ErrNotFound.
func (m *Memory) FindOne(_ context.Context, kind govern.DocKind, id string) (govern.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return doc, nil
}

// FindOneAndDelete removes and returns the document atomically.
func (m *Memory) FindOneAndDelete(_ context.Context, kind govern.DocKind, id string) (govern.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	delete(m.docs[kind], id)
	return doc, nil
}

// FindOneAndUpdate applies update under the lock and returns the result.
func (m *Memory) FindOneAndUpdate(_ context.Context, kind govern.DocKind, id string, update UpdateFunc) (govern.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	updated := update(doc)
	m.docs[kind][id] = updated
	return updated, nil
}

// DeleteMany removes every listed id; missing ids are skipped.
func (m *Memory) DeleteMany(_ context.Context, kind govern.DocKind, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs[kind], id)
	}
	return nil
}

// GuildByCommunity scans the guild bucket for the community id.
func (m *Memory) GuildByCommunity(_ context.Context, communityID string) (govern.Guild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs[govern.KindGuild] {
		guild := doc.(govern.Guild)
		if guild.CommunityID == communityID {
			return guild, nil
		}
	}
	return govern.Guild{}, fmt.Errorf("%w: guild for community %s", ErrNotFound, communityID)
}

// DeleteGuildByCommunity atomically removes and returns the guild record.
func (m *Memory) DeleteGuildByCommunity(_ context.Context, communityID string) (govern.Guild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, doc := range m.docs[govern.KindGuild] {
		guild := doc.(govern.Guild)
		if guild.CommunityID == communityID {
			delete(m.docs[govern.KindGuild], id)
			return guild, nil
		}
	}
	return govern.Guild{}, fmt.Errorf("%w: guild for community %s", ErrNotFound, communityID)
}

// DueEvents lists events due at or before the cutoff.
func (m *Memory) DueEvents(_ context.Context, cutoff time.Time) ([]govern.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []govern.Event
	for _, doc := range m.docs[govern.KindEvent] {
		event := doc.(govern.Event)
		if !event.Due.After(cutoff) {
			due = append(due, event)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Due.Before(due[j].Due) })
	return due, nil
}

// Count reports how many documents of a kind exist (test helper).
func (m *Memory) Count(kind govern.DocKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[kind])
}

// CountAll reports how many documents exist across all kinds (test helper).
func (m *Memory) CountAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, bucket := range m.docs {
		total += len(bucket)
	}
	return total
}
