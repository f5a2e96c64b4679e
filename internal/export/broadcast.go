package export

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/flexapi/explorer/internal/model"
)

// WriteBroadcastDump writes each discovery packet as
// "<time> <from> <len> <hex>" on its own line
func WriteBroadcastDump(packets []model.Packet, w io.Writer) error {
	for _, p := range packets {
		_, err := fmt.Fprintf(w, "%s %s %d %s\n",
			p.Received.Format(time.RFC3339Nano), p.From, len(p.Data), hex.EncodeToString(p.Data))
		if err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}
	return nil
}
