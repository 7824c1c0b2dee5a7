package classify

import (
	"fmt"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// FallbackNonMediaName names text and document messages that carry no
// usable file name: "note_<id>" for text, "message_<id>" otherwise.
func FallbackNonMediaName(messageID int64, fileType, ext string) string {
	base := fmt.Sprintf("message_%d", messageID)
	if fileType == vfs.TypeText {
		base = fmt.Sprintf("note_%d", messageID)
	}
	if ext != "" {
		return base + "." + ext
	}
	return base
}

// MessageUniqueID is the stable row key for a remote-backed item.
func MessageUniqueID(chatID, messageID int64) string {
	return fmt.Sprintf("msg_%d_%d", chatID, messageID)
}

// FolderUniqueID is the deterministic row key for a synthetic folder,
// derived from owner, parent path, and folder name with non-alphanumeric
// runes mapped to underscores.
func FolderUniqueID(ownerID, parentPath, name string) string {
	token := []byte(fmt.Sprintf("%s_%s_%s", ownerID, parentPath, name))
	for i, b := range token {
		isAlnum := (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
		if !isAlnum {
			token[i] = '_'
		}
	}
	return "folder_" + string(token)
}
