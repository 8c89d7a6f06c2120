package webhook

import (
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// DefaultMaxBody bounds webhook payloads when no limit is configured.
const DefaultMaxBody int64 = 1 << 20

// ReadRaw reads at most max bytes from r and fails with ErrPayloadTooLarge
// when the body is longer.
func ReadRaw(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrBadRequest, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, ErrPayloadTooLarge
	}
	return body, nil
}

// ParseObject decodes body as a JSON object.
func ParseObject(body []byte) (map[string]any, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadRequest)
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: payload must be a json object", ErrBadRequest)
	}
	obj, ok := res.Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload must be a json object", ErrBadRequest)
	}
	return obj, nil
}
