package persistence

import "github.com/gangwayhq/gangway/pkg/flow"

// DefaultMaxFieldBytes is the size above which a string field is
// considered an inlined document (base64 uploads, signature images) and
// stripped from remote payloads. The full payload stays in the local
// cache; document delivery has its own channel.
const DefaultMaxFieldBytes = 16 * 1024

// StripBulky returns a copy of data without binary values and without
// string fields larger than limit. Nested maps are walked; empty nested
// maps that result are kept so the field's presence survives.
func StripBulky(data flow.StepData, limit int) flow.StepData {
	if limit <= 0 {
		limit = DefaultMaxFieldBytes
	}
	if data == nil {
		return nil
	}
	out := make(flow.StepData, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case []byte:
			continue
		case string:
			if len(val) > limit {
				continue
			}
			out[k] = val
		case flow.StepData:
			out[k] = StripBulky(val, limit)
		case map[string]any:
			out[k] = map[string]any(StripBulky(flow.StepData(val), limit))
		default:
			out[k] = v
		}
	}
	return out
}
