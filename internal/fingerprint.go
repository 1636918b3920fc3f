package internal

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// Fingerprint returns a content hash of a conversation. Two conversations with
// the same fingerprint are identical in every persisted field.
func Fingerprint(conv *Conversation) string {
	if conv == nil {
		return ""
	}
	h := sha256.New()
	writeField(h, conv.WaID)
	writeField(h, conv.Name)
	writeField(h, conv.LastMessage)

	var buf [8]byte
	for _, msg := range conv.Messages {
		writeField(h, msg.ID)
		if msg.Text == nil {
			h.Write([]byte{0})
		} else {
			h.Write([]byte{1})
			writeField(h, *msg.Text)
		}
		binary.BigEndian.PutUint64(buf[:], uint64(msg.Timestamp))
		h.Write(buf[:])
		writeField(h, msg.Status)
		if msg.FromMe {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed string so adjacent fields cannot collide
func writeField(h io.Writer, s string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}
