package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"opschart/internal/blob"
)

// Archive persists export documents as immutable blobs, one object per
// export keyed by workspace and timestamp.
type Archive struct {
	store blob.Store
}

// NewArchive wraps a blob store.
func NewArchive(store blob.Store) *Archive {
	return &Archive{store: store}
}

// Key returns the object key an export document is stored under.
func Key(doc Document) string {
	return fmt.Sprintf("exports/%s/%s.json", doc.Workspace.ID, doc.ExportedAt.UTC().Format("20060102T150405Z"))
}

// Save encodes the document and writes it as a new object. The blob layer
// rejects overwrites, so re-exporting within the same second fails rather
// than clobbering an archive.
func (a *Archive) Save(ctx context.Context, doc Document) (string, error) {
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	key := Key(doc)
	_, err = a.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"workspace_id":   doc.Workspace.ID,
			"workspace_name": doc.Workspace.Name,
		},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Load reads and validates the document stored under key.
func (a *Archive) Load(ctx context.Context, key string) (Document, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer rc.Close() //nolint:errcheck // read-only stream
	data, err := io.ReadAll(rc)
	if err != nil {
		return Document{}, err
	}
	return Decode(data)
}

// List returns the archive entries for one workspace.
func (a *Archive) List(ctx context.Context, workspaceID string) ([]blob.Info, error) {
	return a.store.List(ctx, "exports/"+workspaceID+"/")
}
