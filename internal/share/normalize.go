package share

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeImageRefs converts an image list that may use the legacy flat-id
// shape back into ImageRefs. Bare integers and numeric strings become refs
// with empty alt text, ImageRef values and {"id", "alt"} maps pass through,
// and everything else is dropped. The result is deduplicated by id.
func NormalizeImageRefs(items []any) []ImageRef {
	refs := make([]ImageRef, 0, len(items))
	for _, item := range items {
		if ref, ok := toImageRef(item); ok {
			refs = append(refs, ref)
		}
	}
	return DedupImageRefs(refs)
}

// DedupImageRefs keeps the first occurrence of every id, in order.
func DedupImageRefs(refs []ImageRef) []ImageRef {
	out := make([]ImageRef, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func toImageRef(item any) (ImageRef, bool) {
	switch v := item.(type) {
	case ImageRef:
		return v, v.ID > 0
	case *ImageRef:
		if v == nil {
			return ImageRef{}, false
		}
		return *v, v.ID > 0
	case map[string]any:
		id, ok := toID(v["id"])
		if !ok {
			return ImageRef{}, false
		}
		alt, _ := v["alt"].(string)
		return ImageRef{ID: id, Alt: alt}, true
	case map[string]string:
		id, ok := toID(v["id"])
		if !ok {
			return ImageRef{}, false
		}
		return ImageRef{ID: id, Alt: v["alt"]}, true
	}

	id, ok := toID(item)
	return ImageRef{ID: id}, ok
}

func toID(v any) (int64, bool) {
	var id int64
	switch n := v.(type) {
	case int:
		id = int64(n)
	case int32:
		id = int64(n)
	case int64:
		id = n
	case uint:
		id = int64(n)
	case uint32:
		id = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		id = int64(n)
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 {
			return 0, false
		}
		id = int64(n)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}
