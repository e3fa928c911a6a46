package fileserve

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"example.com/servefs/internal/config"
	"example.com/servefs/internal/fsx"
)

func rangeHeader(spec string) http.Header {
	hdr := http.Header{}
	hdr.Set("Range", spec)
	return hdr
}

func TestPlanRangeShapes(t *testing.T) {
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)
	meta := fsx.FileMeta{Size: 100, ModTime: time.Now()}
	v := h.newValidator(meta)

	tests := []struct {
		spec string
		plan rangePlan
		want byteInterval
	}{
		// Both bounds given.
		{"bytes=0-49", rangeInterval, byteInterval{0, 49}},
		{"bytes=10-10", rangeInterval, byteInterval{10, 10}},
		{"bytes=0-99", rangeInterval, byteInterval{0, 99}},
		// Start only.
		{"bytes=50-", rangeInterval, byteInterval{50, 99}},
		{"bytes=99-", rangeInterval, byteInterval{99, 99}},
		{"bytes=100-", rangeUnsatisfiable, byteInterval{}},
		// Suffix form.
		{"bytes=-1", rangeInterval, byteInterval{99, 99}},
		{"bytes=-100", rangeInterval, byteInterval{0, 99}},
		{"bytes=-101", rangeInterval, byteInterval{0, 99}}, // clamps, no underflow
		{"bytes=-0", rangeUnsatisfiable, byteInterval{}},
		// Neither bound: whole file, still 206 semantics.
		{"bytes=-", rangeInterval, byteInterval{0, 99}},
		// Out of bounds / inverted.
		{"bytes=50-40", rangeUnsatisfiable, byteInterval{}},
		{"bytes=0-100", rangeUnsatisfiable, byteInterval{}},
		// Multi-range and malformed expressions.
		{"bytes=0-10,20-30", rangeUnsatisfiable, byteInterval{}},
		{"bytes=a-b", rangeUnsatisfiable, byteInterval{}},
		{"octets=0-10", rangeUnsatisfiable, byteInterval{}},
		{"bytes=0--10", rangeUnsatisfiable, byteInterval{}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			plan, iv := h.planRange(rangeHeader(tt.spec), v, meta)
			assert.Equal(t, tt.plan, plan)
			if tt.plan == rangeInterval {
				assert.Equal(t, tt.want, iv)
			}
		})
	}
}

func TestPlanRangeEmptyFile(t *testing.T) {
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)
	meta := fsx.FileMeta{Size: 0, ModTime: time.Now()}

	plan, _ := h.planRange(rangeHeader("bytes=0-"), h.newValidator(meta), meta)
	assert.Equal(t, rangeUnsatisfiable, plan)
}

func TestPlanRangeIfRange(t *testing.T) {
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)
	meta := fsx.FileMeta{Size: 100, ModTime: time.Now()}
	v := h.newValidator(meta)

	hdr := rangeHeader("bytes=0-9")
	hdr.Set("If-Range", v.etag)
	plan, iv := h.planRange(hdr, v, meta)
	assert.Equal(t, rangeInterval, plan)
	assert.Equal(t, byteInterval{0, 9}, iv)

	// Mismatch degrades to a whole-file response even when the range itself
	// is invalid.
	hdr = rangeHeader("bytes=500-900")
	hdr.Set("If-Range", `W/"something-else"`)
	plan, _ = h.planRange(hdr, v, meta)
	assert.Equal(t, rangeIgnore, plan)
}

func TestPlanRangeIfMatch(t *testing.T) {
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)
	meta := fsx.FileMeta{Size: 100, ModTime: time.Now()}
	v := h.newValidator(meta)

	hdr := rangeHeader("bytes=0-9")
	hdr.Set("If-Match", v.etag)
	plan, _ := h.planRange(hdr, v, meta)
	assert.Equal(t, rangeInterval, plan)

	hdr.Set("If-Match", `W/"stale"`)
	plan, _ = h.planRange(hdr, v, meta)
	assert.Equal(t, rangePreconditionFailed, plan)
}

func TestPlanRangeIfUnmodifiedSince(t *testing.T) {
	headerTime := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)

	tests := []struct {
		name string
		mod  time.Time
		plan rangePlan
	}{
		{"file older than header", headerTime.Add(-time.Hour), rangeInterval},
		{"2000ms newer, within tolerance", headerTime.Add(2000 * time.Millisecond), rangeInterval},
		{"2001ms newer", headerTime.Add(2001 * time.Millisecond), rangePreconditionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := fsx.FileMeta{Size: 100, ModTime: tt.mod}
			hdr := rangeHeader("bytes=0-9")
			hdr.Set("If-Unmodified-Since", headerTime.Format(http.TimeFormat))
			plan, _ := h.planRange(hdr, h.newValidator(meta), meta)
			assert.Equal(t, tt.plan, plan)
		})
	}
}

func TestPlanRangeUnparsableIfUnmodifiedSince(t *testing.T) {
	h, _, _ := newTestHandler(t, config.FileServer{}, nil)
	meta := fsx.FileMeta{Size: 100, ModTime: time.Now()}

	hdr := rangeHeader("bytes=0-9")
	hdr.Set("If-Unmodified-Since", "garbage")
	plan, _ := h.planRange(hdr, h.newValidator(meta), meta)
	assert.Equal(t, rangeInterval, plan)
}

func TestIntervalLength(t *testing.T) {
	assert.Equal(t, int64(1), byteInterval{5, 5}.length())
	assert.Equal(t, int64(100), byteInterval{0, 99}.length())
}
