package public

import (
	"encoding/json"

	"github.com/voxgate/voxgate/internal/stt"
)

// encodeCanonical renders adapter output as one JSON array per frame. A
// vendor frame can decode into several canonical responses (a final plus a
// trailing interim), so the array shape is kept even for a single element.
func encodeCanonical(responses []stt.StreamResponse) ([]byte, bool) {
	data, err := json.Marshal(responses)
	if err != nil {
		return nil, false
	}
	return data, true
}
