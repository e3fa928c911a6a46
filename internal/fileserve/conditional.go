package fileserve

import (
	"fmt"
	"net/http"
	"time"

	"example.com/servefs/internal/fsx"
)

// modifiedTolerance absorbs the precision gap between second-granularity
// HTTP date headers and millisecond-granularity file timestamps. The bound
// is inclusive: a header exactly this much older than the file still counts
// as unmodified.
const modifiedTolerance = 2000 * time.Millisecond

// validator holds the cache validators derived from a file's metadata.
// Either field may be absent when the corresponding option is disabled.
type validator struct {
	etag         string
	lastModified time.Time
	hasModified  bool
}

// newValidator derives the cache validators for a stat snapshot. The etag is
// a weak tag over size and mtime; two different byte sequences with the same
// size and modification time collide, which is an accepted approximation.
func (h *Handler) newValidator(meta fsx.FileMeta) validator {
	v := validator{}
	if *h.cfg.ETag {
		v.etag = fmt.Sprintf(`W/"%x-%x"`, meta.Size, meta.ModTime.UnixMilli())
	}
	if *h.cfg.LastModified {
		v.lastModified = meta.ModTime.UTC()
		v.hasModified = true
	}
	return v
}

// notModified reports whether the request's conditional headers allow a 304.
// If-None-Match is an exact string comparison against the computed etag, not
// a weak-comparison algorithm. If-Modified-Since matches when it is no more
// than modifiedTolerance older than the file's mtime; an unparsable date
// never matches. A 304 outcome wins over any range handling.
func (h *Handler) notModified(hdr http.Header, v validator, meta fsx.FileMeta) bool {
	if inm := hdr.Get("If-None-Match"); inm != "" && v.etag != "" && inm == v.etag {
		return true
	}
	if ims := hdr.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil {
			if meta.ModTime.Sub(t) <= modifiedTolerance {
				return true
			}
		}
	}
	return false
}
