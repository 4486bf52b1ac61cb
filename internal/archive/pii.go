package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashPhone returns the hex-encoded SHA-256 hash of a phone number.
func HashPhone(phone string) string {
	h := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(h[:])
}

// redactedFields are dropped outright; hashedFields keep a stable hash so
// deliveries from one caller can still be correlated.
var (
	redactedFields = []string{"patient_tc_number"}
	hashedFields   = []string{"caller_number", "patient_phone"}
)

// ScrubPayload removes national ID numbers and hashes phone numbers in a JSON
// object. Payloads that are not JSON objects are replaced with null.
func ScrubPayload(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return json.RawMessage("null")
	}
	for _, f := range redactedFields {
		if _, ok := fields[f]; ok {
			fields[f] = "[REDACTED]"
		}
	}
	for _, f := range hashedFields {
		if v, ok := fields[f].(string); ok && v != "" {
			fields[f] = "sha256:" + HashPhone(v)
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage("null")
	}
	return out
}
