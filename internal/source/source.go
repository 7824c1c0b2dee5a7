// Package source defines the message source adapter: paginated read and
// delete access to the remote flat message stream. Transport, auth, and
// timeout policy live behind this interface.
package source

import (
	"context"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Adapter is the remote stream contract consumed by the engine. Fetch
// results are ordered by the adapter: FetchSince ascending, FetchBefore
// descending. Errors come back plain; the engine wraps them into its
// tagged kinds.
type Adapter interface {
	// FetchSince returns all messages with id greater than messageID,
	// oldest first. messageID 0 returns the full stream.
	FetchSince(ctx context.Context, messageID int64) ([]vfs.RawMessage, error)

	// FetchBefore returns up to batchSize messages with id lower than
	// messageID, newest first. messageID 0 starts from the newest
	// message. hasMore reports whether older history remains.
	FetchBefore(ctx context.Context, messageID int64, batchSize int) (msgs []vfs.RawMessage, hasMore bool, err error)

	// SendDelete deletes the given messages remotely. It either deletes
	// all of them or returns an error.
	SendDelete(ctx context.Context, messageIDs []int64) error

	// FetchThumbnail downloads the preview bytes for one message.
	FetchThumbnail(ctx context.Context, messageID int64) ([]byte, error)
}
