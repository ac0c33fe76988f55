// Package audit builds tamper-evident records of every mutating action.
// Payloads are never stored verbatim: they are serialized canonically and
// reduced to a fixed-length digest.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is one append-only audit trail entry. Records are created as a
// side effect of state-changing operations and are never mutated.
type Record struct {
	ID            string    `json:"audit_id"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"performed_at"`
	PayloadDigest string    `json:"payload_digest"`
}

// NewRecord builds a record for the given action, digesting the payload.
func NewRecord(entityType, entityID, action, actor string, payload map[string]any) *Record {
	return &Record{
		ID:            ulid.Make().String(),
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		Actor:         actor,
		At:            time.Now().UTC(),
		PayloadDigest: Digest(payload),
	}
}

// Digest reduces a payload to a sha256 hex digest over its canonical
// serialization. Reordering keys in the payload does not change the digest.
func Digest(payload map[string]any) string {
	sum := sha256.Sum256([]byte(Canonical(payload)))
	return hex.EncodeToString(sum[:])
}

// Canonical serializes a payload with lexicographically ordered keys at
// every nesting level. Values that cannot be marshalled fall back to their
// fmt representation rather than failing the triggering operation.
func Canonical(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, canonicalValue(payload[k])...)
	}
	buf = append(buf, '}')
	return string(buf)
}

func canonicalValue(v any) []byte {
	switch t := v.(type) {
	case map[string]any:
		return []byte(Canonical(t))
	case []any:
		buf := []byte{'['}
		for i, e := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalValue(e)...)
		}
		return append(buf, ']')
	default:
		b, err := json.Marshal(v)
		if err != nil {
			b, _ = json.Marshal(fmt.Sprint(v))
		}
		return b
	}
}
