// Package store defines the document-persistence boundary. The engine only
// needs single-document-by-id operations that behave atomically
// (find-and-delete, find-and-update) plus a unique guild-by-community index;
// the real driver behind them is a deployment concern.
package store

import (
	"context"
	"errors"

	"github.com/civitasdev/civitas/internal/govern"
)

// ErrNotFound is returned when no document matches.
var ErrNotFound = errors.New("store: document not found")

// ErrDuplicate is returned when a unique constraint would be violated
// (one guild document per community id).
var ErrDuplicate = errors.New("store: duplicate document")

// UpdateFunc transforms a document in place during FindOneAndUpdate.
type UpdateFunc func(govern.Document) govern.Document

// Store is the document store contract consumed by provisioning, teardown,
// and the command surface.
type Store interface {
	Create(ctx context.Context, doc govern.Document) error
	FindOne(ctx context.Context, kind govern.DocKind, id string) (govern.Document, error)
	// FindOneAndDelete atomically removes and returns the document, or
	// ErrNotFound if it was already gone.
	FindOneAndDelete(ctx context.Context, kind govern.DocKind, id string) (govern.Document, error)
	// FindOneAndUpdate atomically applies update and returns the result.
	FindOneAndUpdate(ctx context.Context, kind govern.DocKind, id string, update UpdateFunc) (govern.Document, error)
	// DeleteMany removes every listed id; missing ids are not an error.
	DeleteMany(ctx context.Context, kind govern.DocKind, ids []string) error
	// GuildByCommunity resolves the unique external-community-id index.
	GuildByCommunity(ctx context.Context, communityID string) (govern.Guild, error)
	// DeleteGuildByCommunity atomically removes and returns the guild
	// record for a community, or ErrNotFound.
	DeleteGuildByCommunity(ctx context.Context, communityID string) (govern.Guild, error)
}
