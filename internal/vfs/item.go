// Package vfs defines the data model shared across the index, mutation,
// and cache layers of the virtual filesystem engine.
package vfs

// File type tags stored on SavedItem rows.
const (
	TypeFolder   = "folder"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeText     = "text"
	TypeDocument = "document"
)

// SavedItem is one row of the virtual filesystem index. FilePath is the
// virtual parent directory, not the full path of the item itself.
type SavedItem struct {
	ChatID            int64
	MessageID         int64 // 0 for synthetic folder placeholders
	FileType          string
	FileUniqueID      string
	FileSize          int64
	FileName          string
	FileCaption       string
	FilePath          string
	ModifiedDate      string
	OwnerID           string
	RecycleOriginPath string // set only while the item lives in the recycle bin
	Thumbnail         string // local thumbnail reference, empty if none
}

// IsFolder reports whether the item is a folder (real or placeholder).
func (it *SavedItem) IsFolder() bool {
	return it.FileType == TypeFolder
}

// FullPath joins the parent path with the item name.
func (it *SavedItem) FullPath() string {
	if it.FilePath == "/" {
		return "/" + it.FileName
	}
	return it.FilePath + "/" + it.FileName
}

// RawMessage is a normalized remote message as produced by the source
// adapter, before classification into a SavedItem.
type RawMessage struct {
	MessageID     int64
	ChatID        int64
	Category      string
	Filename      string
	Extension     string
	MimeType      string
	Timestamp     int64
	Size          int64
	Text          string
	Thumbnail     string
	FileReference string
}

// SyncCheckpoint tracks backfill progress for one identity's stream.
type SyncCheckpoint struct {
	OldestIndexedMessageID int64
	IsComplete             bool
}
