package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	blobcore "caseboard/internal/blob/core"
	"caseboard/pkg/domain"
)

const (
	keyPrefix   = "snapshots/"
	latestKey   = "snapshots/latest.json"
	contentType = "application/json"
)

// Board is the slice of the service surface the archiver needs: exporting the
// current tables and replacing them wholesale on restore.
type Board interface {
	ExportTables(ctx context.Context) (domain.TableSet, domain.Filters, error)
	ReplaceTables(ctx context.Context, tables domain.TableSet, filters *domain.Filters) (domain.Result, error)
}

// Archiver persists board snapshots to blob storage. Every Save writes an
// immutable snapshots/<id>.json object and refreshes the rolling
// snapshots/latest.json pointer.
type Archiver struct {
	board Board
	blobs blobcore.Store
	nowFn func() time.Time

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewArchiver returns an archiver writing to blobs on behalf of board.
func NewArchiver(board Board, blobs blobcore.Store) *Archiver {
	now := time.Now
	return &Archiver{
		board:   board,
		blobs:   blobs,
		nowFn:   now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(now().UnixNano())), 0),
	}
}

// SetNowFunc overrides the clock, for tests.
func (a *Archiver) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		a.nowFn = fn
	}
}

func (a *Archiver) newID(at time.Time) string {
	a.entropyMu.Lock()
	defer a.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), a.entropy).String()
}

// Save exports the board and archives it, returning the written document.
func (a *Archiver) Save(ctx context.Context) (Document, error) {
	tables, filters, err := a.board.ExportTables(ctx)
	if err != nil {
		return Document{}, err
	}
	at := a.nowFn().UTC()
	doc := New(a.newID(at), at, tables, filters)
	payload, err := Encode(doc)
	if err != nil {
		return Document{}, err
	}
	if _, err := a.blobs.Put(ctx, keyPrefix+doc.Meta.ID+".json", bytes.NewReader(payload), contentType); err != nil {
		return Document{}, err
	}
	if _, err := a.blobs.Put(ctx, latestKey, bytes.NewReader(payload), contentType); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Restore loads the snapshot stored under id and replaces the board state
// with it. The board is left untouched when the payload does not decode.
func (a *Archiver) Restore(ctx context.Context, id string) (Document, error) {
	return a.restoreKey(ctx, keyPrefix+id+".json")
}

// RestoreLatest replays the rolling latest snapshot.
func (a *Archiver) RestoreLatest(ctx context.Context) (Document, error) {
	return a.restoreKey(ctx, latestKey)
}

func (a *Archiver) restoreKey(ctx context.Context, key string) (Document, error) {
	_, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	payload, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return Document{}, err
	}
	if closeErr != nil {
		return Document{}, closeErr
	}
	doc, err := Decode(payload)
	if err != nil {
		return Document{}, err
	}
	if _, err := a.board.ReplaceTables(ctx, doc.Tables(), doc.Filters); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// List returns the IDs of archived snapshots, oldest first. The rolling
// latest pointer is excluded.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	infos, err := a.blobs.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Key == latestKey {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(info.Key, keyPrefix), ".json")
		if id == "" {
			return nil, fmt.Errorf("unexpected snapshot key %q", info.Key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
