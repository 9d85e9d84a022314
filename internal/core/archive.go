package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"missioncore/internal/blob"
)

// ScientistArchivePrefix is the blob key prefix for deleted scientist documents.
const ScientistArchivePrefix = "archive/scientists/"

// Archiver stores documents of deleted records.
type Archiver interface {
	ArchiveScientist(ctx context.Context, id int64, doc Document, at time.Time) (blob.Info, error)
	ListScientistArchives(ctx context.Context) ([]blob.Info, error)
}

// BlobArchiver writes archive documents as JSON blobs.
type BlobArchiver struct {
	store blob.Store
}

// NewBlobArchiver wraps a blob store.
func NewBlobArchiver(store blob.Store) *BlobArchiver {
	return &BlobArchiver{store: store}
}

// ScientistArchiveKey names the blob for a scientist deleted at the given time.
func ScientistArchiveKey(id int64, at time.Time) string {
	return fmt.Sprintf("%s%d-%d.json", ScientistArchivePrefix, id, at.Unix())
}

// ArchiveScientist writes doc under ScientistArchiveKey.
func (a *BlobArchiver) ArchiveScientist(ctx context.Context, id int64, doc Document, at time.Time) (blob.Info, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode archive: %w", err)
	}
	return a.store.Put(ctx, ScientistArchiveKey(id, at), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"entity":     string(EntityScientist),
			"entity_id":  strconv.FormatInt(id, 10),
			"deleted_at": at.UTC().Format(time.RFC3339),
		},
	})
}

// ListScientistArchives lists archived scientist blobs by key.
func (a *BlobArchiver) ListScientistArchives(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, ScientistArchivePrefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return infos, nil
}
