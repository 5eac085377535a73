package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/civitasdev/civitas/internal/govern"
)

// File persists each document as pretty-printed JSON under
// <dir>/<kind>/<id>.json. Suitable for single-node deployments; atomicity
// is process-local via the mutex.
type File struct {
	mu  sync.Mutex
	dir string
}

// NewFile roots a file store at dir.
func NewFile(dir string) *File {
	return &File{dir: filepath.Join(dir, "store")}
}

var _ Store = (*File)(nil)

func (f *File) path(kind govern.DocKind, id string) string {
	return filepath.Join(f.dir, string(kind), id+".json")
}

func (f *File) write(doc govern.Document) error {
	path := f.path(doc.DocKind(), doc.DocID())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

func (f *File) read(kind govern.DocKind, id string) (govern.Document, error) {
	data, err := os.ReadFile(f.path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
		}
		return nil, err
	}
	return decode(kind, data)
}

func decode(kind govern.DocKind, data []byte) (govern.Document, error) {
	var (
		doc govern.Document
		err error
	)
	switch kind {
	case govern.KindRole:
		var v govern.Role
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindRoleHolder:
		var v govern.RoleHolder
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindCategory:
		var v govern.Category
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindChannel:
		var v govern.Channel
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindChamber:
		var v govern.Chamber
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindSystem:
		var v govern.PoliticalSystem
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindLogHolder:
		var v govern.LogChannelHolder
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindGuild:
		var v govern.Guild
		err = json.Unmarshal(data, &v)
		doc = v
	case govern.KindEvent:
		var v govern.Event
		err = json.Unmarshal(data, &v)
		doc = v
	default:
		return nil, fmt.Errorf("store: unknown document kind %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", kind, err)
	}
	return doc, nil
}

// Create writes the document, enforcing the unique community index for
// guild records.
func (f *File) Create(ctx context.Context, doc govern.Document) error {
	if doc.DocID() == "" {
		return fmt.Errorf("store: document id is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.path(doc.DocKind(), doc.DocID())); err == nil {
		return fmt.Errorf("%w: %s %s", ErrDuplicate, doc.DocKind(), doc.DocID())
	}
	if guild, ok := doc.(govern.Guild); ok {
		if _, err := f.guildByCommunityLocked(guild.CommunityID); err == nil {
			return fmt.Errorf("%w: community %s", ErrDuplicate, guild.CommunityID)
		}
	}
	return f.write(doc)
}

// FindOne reads the document or returns ErrNotFound.
func (f *File) FindOne(_ context.Context, kind govern.DocKind, id string) (govern.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(kind, id)
}

// FindOneAndDelete reads then removes the document under the lock.
func (f *File) FindOneAndDelete(_ context.Context, kind govern.DocKind, id string) (govern.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(kind, id)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.path(kind, id)); err != nil {
		return nil, err
	}
	return doc, nil
}

// FindOneAndUpdate applies update and rewrites the document under the lock.
func (f *File) FindOneAndUpdate(_ context.Context, kind govern.DocKind, id string, update UpdateFunc) (govern.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(kind, id)
	if err != nil {
		return nil, err
	}
	updated := update(doc)
	if err := f.write(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMany removes every listed id; missing files are skipped.
func (f *File) DeleteMany(_ context.Context, kind govern.DocKind, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if err := os.Remove(f.path(kind, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// GuildByCommunity scans guild documents for the community id.
func (f *File) GuildByCommunity(_ context.Context, communityID string) (govern.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guildByCommunityLocked(communityID)
}

// DeleteGuildByCommunity removes and returns the guild record.
func (f *File) DeleteGuildByCommunity(_ context.Context, communityID string) (govern.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	guild, err := f.guildByCommunityLocked(communityID)
	if err != nil {
		return govern.Guild{}, err
	}
	if err := os.Remove(f.path(govern.KindGuild, guild.ID)); err != nil {
		return govern.Guild{}, err
	}
	return guild, nil
}

// DueEvents lists events due at or before the cutoff, soonest first.
func (f *File) DueEvents(_ context.Context, cutoff time.Time) ([]govern.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := filepath.Join(f.dir, string(govern.KindEvent))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var due []govern.Event
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		doc, err := decode(govern.KindEvent, data)
		if err != nil {
			return nil, err
		}
		event := doc.(govern.Event)
		if !event.Due.After(cutoff) {
			due = append(due, event)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Due.Before(due[j].Due) })
	return due, nil
}

func (f *File) guildByCommunityLocked(communityID string) (govern.Guild, error) {
	dir := filepath.Join(f.dir, string(govern.KindGuild))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return govern.Guild{}, fmt.Errorf("%w: guild for community %s", ErrNotFound, communityID)
		}
		return govern.Guild{}, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return govern.Guild{}, err
		}
		doc, err := decode(govern.KindGuild, data)
		if err != nil {
			return govern.Guild{}, err
		}
		guild := doc.(govern.Guild)
		if guild.CommunityID == communityID {
			return guild, nil
		}
	}
	return govern.Guild{}, fmt.Errorf("%w: guild for community %s", ErrNotFound, communityID)
}
