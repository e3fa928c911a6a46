package fileserve

import (
	"net/http"
	"regexp"
	"strconv"

	"example.com/servefs/internal/fsx"
)

// byteInterval is an inclusive pair of zero-based byte offsets satisfying
// 0 <= start <= end < size.
type byteInterval struct {
	start int64
	end   int64
}

func (iv byteInterval) length() int64 { return iv.end - iv.start + 1 }

type rangePlan int

const (
	// rangeIgnore degrades the request to a plain whole-file 200 (the
	// If-Range precondition failed).
	rangeIgnore rangePlan = iota
	// rangeInterval serves the returned interval with a 206.
	rangeInterval
	// rangeUnsatisfiable rejects with a 416.
	rangeUnsatisfiable
	// rangePreconditionFailed rejects with a 412.
	rangePreconditionFailed
)

// rangePattern accepts the single-range form "bytes=<start>?-<end>?".
// Multi-range expressions do not match and are treated as unsatisfiable.
var rangePattern = regexp.MustCompile(`^bytes=([0-9]*)-([0-9]*)$`)

// planRange turns the request's Range and range-precondition headers into a
// concrete plan against the file's size. Only called when range support is
// enabled and a Range header is present.
func (h *Handler) planRange(hdr http.Header, v validator, meta fsx.FileMeta) (rangePlan, byteInterval) {
	// A stale If-Range validator means the client's basis for the range is
	// gone; serve the whole file regardless of the range's correctness.
	if ifRange := hdr.Get("If-Range"); ifRange != "" && ifRange != v.etag {
		return rangeIgnore, byteInterval{}
	}

	if ifMatch := hdr.Get("If-Match"); ifMatch != "" && ifMatch != v.etag {
		return rangePreconditionFailed, byteInterval{}
	}
	if ius := hdr.Get("If-Unmodified-Since"); ius != "" {
		if t, err := http.ParseTime(ius); err == nil {
			if meta.ModTime.Sub(t) > modifiedTolerance {
				return rangePreconditionFailed, byteInterval{}
			}
		}
	}

	m := rangePattern.FindStringSubmatch(hdr.Get("Range"))
	if m == nil {
		return rangeUnsatisfiable, byteInterval{}
	}
	startStr, endStr := m[1], m[2]

	iv := byteInterval{start: 0, end: meta.Size - 1}
	switch {
	case startStr == "" && endStr == "":
		// "bytes=-": the full file, still answered with 206 semantics.

	case endStr == "":
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return rangeUnsatisfiable, byteInterval{}
		}
		iv.start = start

	case startStr == "":
		// Suffix form: the final <end> bytes. A suffix longer than the file
		// clamps to the start rather than underflowing.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return rangeUnsatisfiable, byteInterval{}
		}
		iv.start = meta.Size - n
		if iv.start < 0 {
			iv.start = 0
		}
		// "bytes=-0" leaves start == size and fails validation below.

	default:
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return rangeUnsatisfiable, byteInterval{}
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return rangeUnsatisfiable, byteInterval{}
		}
		iv.start, iv.end = start, end
	}

	if iv.start > iv.end || iv.end >= meta.Size {
		return rangeUnsatisfiable, byteInterval{}
	}
	return rangeInterval, iv
}
