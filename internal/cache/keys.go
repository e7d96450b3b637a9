package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key derives a cache key for a rendered document from its format and the
// serialized parcel content. Any edit to the parcel changes the key, so
// entries never need explicit invalidation.
func Key(format string, content []byte) string {
	return fmt.Sprintf("orchard:export:%s:%016x", format, xxhash.Sum64(content))
}
