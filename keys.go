package fleetcache

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GenerateKey builds "<prefix>:<json(params)>". Map keys are emitted in sorted
// order, so maps with the same content produce the same key.
// Params that cannot be marshaled fall back to their %v rendering.
func GenerateKey(prefix string, params any) string {
	buf := getBuffer()
	defer putBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}
	return prefix + ":" + string(bytes.TrimRight(buf.Bytes(), "\n"))
}
