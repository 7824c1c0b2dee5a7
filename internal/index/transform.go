package index

import (
	"time"

	"github.com/TG-SkyBox/SkyBox/internal/classify"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
	"github.com/TG-SkyBox/SkyBox/internal/vpath"
)

// savedItemFromMessage normalizes a raw remote message into an index row.
// Remote shape ambiguity (missing names, extensions, MIME types) is
// resolved here and never leaks past the indexer.
func savedItemFromMessage(ownerID string, m *vfs.RawMessage) *vfs.SavedItem {
	name := classify.SanitizedOrEmpty(m.Filename)

	ext := classify.NormalizeExtension(m.Extension)
	if ext == "" && name != "" {
		ext = classify.ExtensionFromName(name)
	}
	if ext == "" {
		ext = classify.ExtensionFromMime(m.MimeType)
	}

	cls := classify.ByExtension(ext)
	if ext == "" {
		ext = classify.DefaultExtension(cls.FileType)
	}

	if name == "" {
		switch cls.FileType {
		case vfs.TypeImage, vfs.TypeVideo, vfs.TypeAudio:
			name = classify.GeneratedFileName(cls.FileType, ext)
		default:
			name = classify.FallbackNonMediaName(m.MessageID, cls.FileType, ext)
		}
	}

	return &vfs.SavedItem{
		ChatID:       m.ChatID,
		MessageID:    m.MessageID,
		FileType:     cls.FileType,
		FileUniqueID: classify.MessageUniqueID(m.ChatID, m.MessageID),
		FileSize:     m.Size,
		FileName:     name,
		FileCaption:  m.Text,
		FilePath:     vpath.DefaultCategoryPath(cls.Category),
		ModifiedDate: time.Unix(m.Timestamp, 0).UTC().Format(time.RFC3339),
		OwnerID:      ownerID,
		Thumbnail:    m.Thumbnail,
	}
}
