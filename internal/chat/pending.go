package chat

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"homecare-portal/internal/models"
)

var pendingSeq atomic.Uint64

// newPendingID returns a temporary id unique within the process even for sends in the same
// clock tick.
func newPendingID() models.ID {
	seq := pendingSeq.Add(1)
	return models.ID(models.PendingPrefix + strconv.FormatUint(seq, 10) + "-" + uuid.NewString()[:8])
}

func removeByID(msgs []models.Message, id models.ID) []models.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
