package fileserve

import (
	"net/http"
	"path"
	"slices"
	"strings"

	"example.com/servefs/internal/config"
	"example.com/servefs/internal/fsx"
	"example.com/servefs/internal/logger"
)

type action int

const (
	actServe action = iota
	actRedirect
	actEmpty
	actDefer
	actFail
)

// resolution is the outcome of mapping a URL path to a filesystem target.
// Exactly one is produced per request; internal re-resolution (index lookup,
// not-found substitution) happens inside resolve, never as a second response.
type resolution struct {
	action   action
	path     string
	meta     fsx.FileMeta
	status   int    // terminal status for actEmpty; forced status for actServe (404 substitute)
	location string // actRedirect only
	err      error  // actFail only
}

// resolve maps urlPath to a file under the configured base directory.
// Implemented as an iteration-capped loop rather than recursion: the
// not-found substitution and the implicit-index lookup each fire at most
// once, tracked as loop state instead of mutated configuration.
func (h *Handler) resolve(urlPath string) resolution {
	// Rooted clean keeps ".." segments from escaping the base directory.
	cleaned := path.Clean("/" + urlPath)
	cur := path.Join(h.cfg.BaseDir, cleaned)

	substituted := false
	indexEnabled := h.cfg.IndexPolicy.Enabled
	forced := 0

	// miss applies the not-found policy. When it returns retry=true it has
	// retargeted the loop at the substitute file.
	miss := func() (resolution, bool) {
		switch h.cfg.NotFoundPolicy.Mode {
		case config.NotFoundDefer:
			return resolution{action: actDefer}, false
		case config.NotFoundSubstitute:
			if substituted {
				// The substitute itself is missing or unusable; fall
				// through to the caller.
				return resolution{action: actDefer}, false
			}
			substituted = true
			cur = path.Join(h.cfg.BaseDir, path.Clean("/"+h.cfg.NotFoundPolicy.Path))
			forced = http.StatusNotFound
			return resolution{}, true
		default:
			return resolution{action: actEmpty, status: http.StatusNotFound}, false
		}
	}

	// Initial target, substitute, index child, and one race retry at most.
	for hop := 0; hop < 4; hop++ {
		meta, err := h.fs.Stat(cur)
		if err != nil {
			if !fsx.IsNotExist(err) {
				return resolution{action: actFail, err: &Error{Kind: KindStat, Path: cur, Err: err}}
			}
			if res, retry := miss(); !retry {
				return res
			}
			continue
		}

		if !meta.IsDir {
			return resolution{action: actServe, path: cur, meta: meta, status: forced}
		}

		// Directories are only servable through an implicit index.
		if forced != 0 || !indexEnabled {
			if res, retry := miss(); !retry {
				return res
			}
			continue
		}

		if !strings.HasSuffix(urlPath, "/") && *h.cfg.TrailingSlash {
			return resolution{action: actRedirect, location: cleaned + "/"}
		}

		names, err := h.fs.ReadDir(cur)
		if err != nil {
			return resolution{action: actFail, err: &Error{Kind: KindDirectoryAccess, Path: cur, Err: err}}
		}
		child := ""
		for _, ext := range h.cfg.IndexPolicy.Extensions {
			if cand := "index." + ext; slices.Contains(names, cand) {
				child = cand
				break
			}
		}
		if child == "" {
			if res, retry := miss(); !retry {
				return res
			}
			continue
		}

		h.log.Debug("resolved implicit index", logger.LogFields{
			"dir": cur, "index": child,
		})
		cur = path.Join(cur, child)
		indexEnabled = false
	}

	// Unreachable: substitution and index lookup are each capped at one use.
	return resolution{action: actEmpty, status: http.StatusInternalServerError}
}
