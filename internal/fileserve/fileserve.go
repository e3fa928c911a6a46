// Package fileserve implements an HTTP middleware that serves files from a
// base directory with conditional caching (etag, last-modified), byte-range
// retrieval, implicit index resolution, and directory trailing-slash
// redirects. Requests it does not apply to are handed to a next handler;
// failures are handed to an error continuation.
package fileserve

import (
	"errors"
	"net/http"

	"example.com/servefs/internal/config"
	"example.com/servefs/internal/fsx"
	"example.com/servefs/internal/logger"
	"example.com/servefs/internal/mimetype"
)

// ErrorFunc is the error continuation. It is invoked at most once per
// request, and never after the middleware has produced a terminal response.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Deps are the collaborators the middleware needs. FS, MIME, Next, and
// OnError are required; a nil Log falls back to a discard logger.
type Deps struct {
	FS      fsx.FileSystem
	MIME    *mimetype.Resolver
	Log     *logger.Logger
	Next    http.Handler
	OnError ErrorFunc
}

// Handler is the file-serving middleware. It is stateless per request;
// configuration is read-only after New.
type Handler struct {
	cfg     config.FileServer
	fs      fsx.FileSystem
	mime    *mimetype.Resolver
	log     *logger.Logger
	next    http.Handler
	onError ErrorFunc
}

// New builds a Handler. The configuration is normalized (defaults applied,
// option shapes resolved); missing collaborators are a setup error, not a
// runtime fallback.
func New(cfg config.FileServer, deps Deps) (*Handler, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if deps.FS == nil {
		return nil, errors.New("fileserve: filesystem collaborator is required")
	}
	if deps.MIME == nil {
		return nil, errors.New("fileserve: MIME resolver is required")
	}
	if deps.Next == nil {
		return nil, errors.New("fileserve: next handler is required")
	}
	if deps.OnError == nil {
		return nil, errors.New("fileserve: error continuation is required")
	}
	if deps.Log == nil {
		deps.Log = logger.NewDiscardLogger()
	}
	return &Handler{
		cfg:     cfg,
		fs:      deps.FS,
		mime:    deps.MIME,
		log:     deps.Log,
		next:    deps.Next,
		onError: deps.OnError,
	}, nil
}

// ServeHTTP resolves the request path and emits exactly one of: a redirect,
// an empty terminal status, a (partial) file body, a hand-off to next, or an
// error continuation call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.next.ServeHTTP(w, r)
		return
	}

	res := h.resolve(r.URL.Path)
	switch res.action {
	case actDefer:
		h.next.ServeHTTP(w, r)

	case actFail:
		h.fail(w, r, res.err)

	case actEmpty:
		h.emitEmpty(w, res.status)

	case actRedirect:
		h.log.Debug("redirecting directory request", logger.LogFields{
			"path": r.URL.Path, "location": res.location,
		})
		h.emitRedirect(w, res.location)

	case actServe:
		h.serve(w, r, res)
	}
}

// serve runs the validator engine and range planner for a resolved file and
// funnels the outcome into the emitter.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, res resolution) {
	if res.status != 0 {
		// Not-found substitute: the status is forced and cache validators
		// do not apply.
		h.emitFile(w, r, res, validator{}, nil)
		return
	}

	v := h.newValidator(res.meta)

	if *h.cfg.Conditional && h.notModified(r.Header, v, res.meta) {
		h.emitNotModified(w, v)
		return
	}

	if *h.cfg.Range && r.Header.Get("Range") != "" {
		switch plan, iv := h.planRange(r.Header, v, res.meta); plan {
		case rangePreconditionFailed:
			h.emitEmpty(w, http.StatusPreconditionFailed)
		case rangeUnsatisfiable:
			h.emitUnsatisfiableRange(w, res.meta.Size)
		case rangeInterval:
			h.emitFile(w, r, res, v, &iv)
		default: // rangeIgnore: degrade to a plain whole-file response
			h.emitFile(w, r, res, v, nil)
		}
		return
	}

	h.emitFile(w, r, res, v, nil)
}

// fail terminates a request whose failure happened before any response bytes
// were written: hushed into an empty 500, or surfaced to the continuation.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if *h.cfg.HushErrors {
		h.log.Warn("hushing request failure", logger.LogFields{
			"path": r.URL.Path, "error": err.Error(),
		})
		h.emitEmpty(w, http.StatusInternalServerError)
		return
	}
	h.onError(w, r, err)
}
