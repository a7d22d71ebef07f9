package chat

import (
	"strconv"
	"strings"

	"homecare-portal/internal/models"
)

// Fingerprint is a cheap summary of a message list used to skip redundant updates.
// It changes when persisted messages are added or removed, when the tail changes and when
// any read flag flips.
type Fingerprint struct {
	Count    int
	LastID   models.ID
	LastAt   int64
	ReadMask string
}

// FingerprintOf computes the fingerprint of msgs.
func FingerprintOf(msgs []models.Message) Fingerprint {
	var fp Fingerprint
	pairs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if !m.Pending() {
			fp.Count++
		}
		pairs = append(pairs, m.ID.String()+":"+strconv.FormatBool(m.Read))
	}
	if n := len(msgs); n > 0 {
		fp.LastID = msgs[n-1].ID
		fp.LastAt = msgs[n-1].CreatedAt.UnixNano()
	}
	fp.ReadMask = strings.Join(pairs, ",")
	return fp
}
