package events

import (
	"encoding/json"
	"fmt"
)

// MustMarshal marshals an event payload. Payload structs contain only
// marshalable fields, so a failure here is a programming bug.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("events: failed to marshal payload %T: %v", v, err))
	}
	return b
}
