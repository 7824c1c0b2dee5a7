package store

import (
	"database/sql"
	"errors"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// ─────────────────────── Raw Message Cache ───────────────────────
//
// The messages table caches remote messages as fetched, independent of
// the saved_items index. RebuildIndex rehydrates the index from here.

const messageColumns = `message_id, chat_id, category, filename, extension,
	mime_type, timestamp, size, text, thumbnail, file_reference`

// UpsertMessage caches one raw remote message.
func (s *Store) UpsertMessage(m *vfs.RawMessage) error {
	defer timeQuery("upsert_message")()

	_, err := s.db.Exec(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id, chat_id) DO UPDATE SET
			category       = excluded.category,
			filename       = excluded.filename,
			extension      = excluded.extension,
			mime_type      = excluded.mime_type,
			timestamp      = excluded.timestamp,
			size           = excluded.size,
			text           = excluded.text,
			thumbnail      = CASE WHEN excluded.thumbnail != ''
			                      THEN excluded.thumbnail
			                      ELSE messages.thumbnail END,
			file_reference = excluded.file_reference`,
		m.MessageID, m.ChatID, m.Category, m.Filename, m.Extension,
		m.MimeType, m.Timestamp, m.Size, m.Text, m.Thumbnail, m.FileReference,
	)
	if err != nil {
		return storeErr("upsert message", err)
	}
	return nil
}

// GetAllMessages returns every cached message for a chat, newest first.
func (s *Store) GetAllMessages(chatID int64) ([]vfs.RawMessage, error) {
	defer timeQuery("get_all_messages")()

	rows, err := s.db.Query(`
		SELECT `+messageColumns+`
		FROM messages WHERE chat_id = ?
		ORDER BY message_id DESC`,
		chatID,
	)
	if err != nil {
		return nil, storeErr("get all messages", err)
	}
	defer rows.Close()

	var msgs []vfs.RawMessage
	for rows.Next() {
		var m vfs.RawMessage
		err := rows.Scan(
			&m.MessageID, &m.ChatID, &m.Category, &m.Filename, &m.Extension,
			&m.MimeType, &m.Timestamp, &m.Size, &m.Text, &m.Thumbnail,
			&m.FileReference,
		)
		if err != nil {
			return nil, storeErr("scan message", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate messages", err)
	}
	return msgs, nil
}

// CountMessages counts cached messages for a chat.
func (s *Store) CountMessages(chatID int64) (int, error) {
	defer timeQuery("count_messages")()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, storeErr("count messages", err)
	}
	return n, nil
}

// GetMessageThumbnail returns the persisted thumbnail reference for one
// message, or "" when none was cached yet.
func (s *Store) GetMessageThumbnail(chatID, messageID int64) (string, error) {
	defer timeQuery("get_message_thumbnail")()

	var thumb string
	err := s.db.QueryRow(`
		SELECT thumbnail FROM messages
		WHERE chat_id = ? AND message_id = ?`,
		chatID, messageID,
	).Scan(&thumb)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get message thumbnail", err)
	}
	return thumb, nil
}

// SetMessageThumbnail persists a fetched thumbnail reference to the raw
// cache so later sessions skip the remote fetch.
func (s *Store) SetMessageThumbnail(chatID, messageID int64, thumbnail string) error {
	defer timeQuery("set_message_thumbnail")()

	_, err := s.db.Exec(`
		INSERT INTO messages (message_id, chat_id, thumbnail)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id, chat_id) DO UPDATE SET
			thumbnail = excluded.thumbnail`,
		messageID, chatID, thumbnail,
	)
	if err != nil {
		return storeErr("set message thumbnail", err)
	}
	return nil
}
