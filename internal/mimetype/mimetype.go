// Package mimetype maps file extensions to content types. Lookup order:
// custom overrides from configuration, then the platform mime database via
// mime.TypeByExtension, then a builtin table, then application/octet-stream.
package mimetype

import (
	"mime"
	"path"
	"strings"
)

// DefaultType is returned when no mapping exists for an extension.
const DefaultType = "application/octet-stream"

// builtinTypes supplements mime.TypeByExtension for hosts with a sparse or
// missing mime database.
var builtinTypes = map[string]string{
	".avif":  "image/avif",
	".css":   "text/css; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".gif":   "image/gif",
	".gz":    "application/gzip",
	".htm":   "text/html; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".ico":   "image/vnd.microsoft.icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".tar":   "application/x-tar",
	".ttf":   "font/ttf",
	".txt":   "text/plain; charset=utf-8",
	".wasm":  "application/wasm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xml":   "application/xml; charset=utf-8",
	".zip":   "application/zip",
}

// Resolver answers extension-to-content-type lookups.
type Resolver struct {
	custom map[string]string
}

// NewResolver builds a Resolver with optional custom overrides. Override keys
// may be given with or without the leading dot and are matched
// case-insensitively.
func NewResolver(custom map[string]string) *Resolver {
	r := &Resolver{custom: make(map[string]string, len(custom))}
	for ext, typ := range custom {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.custom[ext] = typ
	}
	return r
}

// TypeOf returns the content type for the given file path.
func (r *Resolver) TypeOf(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if ext == "" {
		return DefaultType
	}
	if typ, ok := r.custom[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	if typ, ok := builtinTypes[ext]; ok {
		return typ
	}
	return DefaultType
}
