package fileserve

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"example.com/servefs/internal/logger"
)

// streamBufferSize is the chunk size for copying file bytes to the response.
// Reads and writes alternate on the same buffer, so the response sink's
// consumption rate bounds how fast the file is read.
const streamBufferSize = 32 * 1024

// stripEntityHeaders removes body-describing headers before a bodyless
// terminal response.
func stripEntityHeaders(hdr http.Header) {
	hdr.Del("Content-Type")
	hdr.Del("Content-Length")
	hdr.Del("Cache-Control")
}

func (h *Handler) emitEmpty(w http.ResponseWriter, status int) {
	stripEntityHeaders(w.Header())
	w.WriteHeader(status)
}

func (h *Handler) emitRedirect(w http.ResponseWriter, location string) {
	stripEntityHeaders(w.Header())
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusMovedPermanently)
}

func (h *Handler) emitNotModified(w http.ResponseWriter, v validator) {
	stripEntityHeaders(w.Header())
	if v.etag != "" {
		w.Header().Set("ETag", v.etag)
	}
	if v.hasModified {
		w.Header().Set("Last-Modified", v.lastModified.Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusNotModified)
}

func (h *Handler) emitUnsatisfiableRange(w http.ResponseWriter, size int64) {
	stripEntityHeaders(w.Header())
	w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}

// emitFile streams the whole file (iv == nil) or the given byte interval.
// The file is opened and positioned before the status line is committed so
// that open/seek failures can still change the outcome.
func (h *Handler) emitFile(w http.ResponseWriter, r *http.Request, res resolution, v validator, iv *byteInterval) {
	status := http.StatusOK
	var start, length int64 = 0, res.meta.Size
	if iv != nil {
		status = http.StatusPartialContent
		start, length = iv.start, iv.length()
	}
	if res.status != 0 {
		status = res.status
	}

	f, err := h.fs.Open(res.path)
	if err != nil {
		h.fail(w, r, &Error{Kind: KindStream, Path: res.path, Err: err})
		return
	}
	defer f.Close()

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			h.fail(w, r, &Error{Kind: KindStream, Path: res.path, Err: err})
			return
		}
	}

	hdr := w.Header()
	hdr.Set("Content-Type", h.mime.TypeOf(res.path))
	hdr.Set("Content-Length", strconv.FormatInt(length, 10))
	if res.status == 0 {
		if v.etag != "" {
			hdr.Set("ETag", v.etag)
		}
		if v.hasModified {
			hdr.Set("Last-Modified", v.lastModified.Format(http.TimeFormat))
		}
		hdr.Set("Cache-Control", fmt.Sprintf("max-age=%d", *h.cfg.MaxAge))
		if *h.cfg.Range {
			hdr.Set("Accept-Ranges", "bytes")
		}
	}
	if iv != nil {
		hdr.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", iv.start, iv.end, res.meta.Size))
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead || length == 0 {
		return
	}

	h.stream(w, r, res.path, f, length)
}

// stream copies length bytes from f to w. Write-side failures mean the peer
// stopped consuming and end the transfer quietly; read-side failures are
// surfaced, though the committed status line can no longer change.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, path string, f io.Reader, length int64) {
	buf := make([]byte, streamBufferSize)
	remaining := length
	for remaining > 0 {
		chunk := buf
		if remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		n, readErr := f.Read(chunk)
		if n > 0 {
			if _, writeErr := w.Write(chunk[:n]); writeErr != nil {
				h.log.Debug("peer closed connection during transfer", logger.LogFields{
					"path": path, "remaining": remaining, "error": writeErr.Error(),
				})
				return
			}
			remaining -= int64(n)
		}

		if readErr != nil {
			if readErr == io.EOF {
				if remaining > 0 {
					h.log.Warn("file shrank during transfer", logger.LogFields{
						"path": path, "missing": remaining,
					})
				}
				return
			}
			// Headers are committed; a mid-stream read failure cannot be
			// downgraded to a 500, only reported and truncated.
			streamErr := &Error{Kind: KindStream, Path: path, Err: readErr}
			if *h.cfg.HushErrors {
				h.log.Error("read failure during transfer", logger.LogFields{
					"path": path, "error": readErr.Error(),
				})
				return
			}
			h.onError(w, r, streamErr)
			return
		}
	}
}
