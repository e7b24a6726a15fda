package handler

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// StaticFS is the embedded game assets filesystem (set by main package)
var StaticFS fs.FS

// StaticDir 未嵌入资源时从磁盘读取的目录（开发模式）
var StaticDir = "public"

// staticFileCache caches file content and metadata
type staticFileCache struct {
	content     []byte
	gzipped     []byte // pre-compressed content
	brotli      []byte
	contentType string
	etag        string
	hasHash     bool // whether filename contains hash (can be cached long-term)
}

// NewStaticHandler creates a handler for serving the game assets.
// If StaticFS is set, it uses the embedded filesystem; otherwise, reads from StaticDir
func NewStaticHandler() http.Handler {
	if StaticFS != nil {
		return newEmbeddedStaticHandler(StaticFS)
	}
	return newFileSystemStaticHandler(StaticDir)
}

// newFileSystemStaticHandler serves static files from disk with lazy caching
func newFileSystemStaticHandler(root string) http.Handler {
	var cache sync.Map

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlPath := cleanURLPath(r.URL.Path)

		if cached, ok := cache.Load(urlPath); ok {
			serveFromCache(w, r, cached.(*staticFileCache))
			return
		}

		// cleanURLPath 已去掉 ".."，拼接结果不会逃出 root
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(urlPath)))
		if err != nil {
			// File not found, try index.html for SPA routing
			urlPath = "index.html"
			if cached, ok := cache.Load(urlPath); ok {
				serveFromCache(w, r, cached.(*staticFileCache))
				return
			}
			content, err = os.ReadFile(filepath.Join(root, urlPath))
			if err != nil {
				http.NotFound(w, r)
				return
			}
		}

		cached := buildCacheEntry(urlPath, content)
		cache.Store(urlPath, cached)
		serveFromCache(w, r, cached)
	})
}

// newEmbeddedStaticHandler serves static files from embedded filesystem
func newEmbeddedStaticHandler(fsys fs.FS) http.Handler {
	// Pre-load all files into cache at startup
	cache := make(map[string]*staticFileCache)

	fs.WalkDir(fsys, ".", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil
		}
		cache[filePath] = buildCacheEntry(filePath, content)
		return nil
	})

	indexCache := cache["index.html"]

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cached, ok := cache[cleanURLPath(r.URL.Path)]
		if !ok {
			if indexCache != nil {
				serveFromCache(w, r, indexCache)
				return
			}
			http.NotFound(w, r)
			return
		}
		serveFromCache(w, r, cached)
	})
}

// cleanURLPath 把请求路径规整为相对路径，"/" 映射到 index.html
func cleanURLPath(p string) string {
	urlPath := path.Clean("/" + p)
	if urlPath == "/" {
		return "index.html"
	}
	return strings.TrimPrefix(urlPath, "/")
}

// buildCacheEntry creates a cache entry with pre-computed metadata and compressed variants
func buildCacheEntry(urlPath string, content []byte) *staticFileCache {
	cached := &staticFileCache{
		content:     content,
		contentType: getMimeType(urlPath),
		etag:        fmt.Sprintf(`"%x"`, md5.Sum(content)),
		hasHash:     hasContentHash(urlPath),
	}

	if !isCompressible(cached.contentType) || len(content) <= 1024 {
		return cached
	}

	var gz bytes.Buffer
	if zw, err := gzip.NewWriterLevel(&gz, gzip.BestCompression); err == nil {
		zw.Write(content)
		zw.Close()
		// Only use gzip if it actually reduces size
		if gz.Len() < len(content) {
			cached.gzipped = gz.Bytes()
		}
	}

	var br bytes.Buffer
	bw := brotli.NewWriterLevel(&br, brotli.BestCompression)
	bw.Write(content)
	bw.Close()
	if br.Len() < len(content) {
		cached.brotli = br.Bytes()
	}

	return cached
}

// serveFromCache serves a file from cache with proper headers
func serveFromCache(w http.ResponseWriter, r *http.Request, cached *staticFileCache) {
	if cached.hasHash {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else if cached.contentType == "text/html; charset=utf-8" || strings.HasSuffix(r.URL.Path, "sw.js") {
		// HTML 和 service worker 必须每次校验
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=86400, must-revalidate")
	}

	w.Header().Set("ETag", cached.etag)
	if r.Header.Get("If-None-Match") == cached.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", cached.contentType)
	w.Header().Set("Vary", "Accept-Encoding")

	body := cached.content
	switch encoding := acceptedEncoding(r.Header.Get("Accept-Encoding"), cached); encoding {
	case "br":
		body = cached.brotli
		w.Header().Set("Content-Encoding", encoding)
	case "gzip":
		body = cached.gzipped
		w.Header().Set("Content-Encoding", encoding)
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

// acceptedEncoding 选择客户端接受且已预压缩的编码，br 优先
func acceptedEncoding(header string, cached *staticFileCache) string {
	if header == "" {
		return ""
	}
	accepts := func(name string) bool {
		for _, part := range strings.Split(header, ",") {
			token, params, _ := strings.Cut(part, ";")
			if strings.TrimSpace(token) != name {
				continue
			}
			if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
				if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
					return false
				}
			}
			return true
		}
		return false
	}
	if cached.brotli != nil && accepts("br") {
		return "br"
	}
	if cached.gzipped != nil && accepts("gzip") {
		return "gzip"
	}
	return ""
}

// hasContentHash checks if filename contains a content hash (name-HASH.ext)
func hasContentHash(filePath string) bool {
	base := path.Base(filePath)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if idx := strings.LastIndex(name, "-"); idx > 0 {
		hash := name[idx+1:]
		if len(hash) >= 6 && len(hash) <= 12 {
			hasDigit := false
			for _, c := range hash {
				switch {
				case c >= '0' && c <= '9':
					hasDigit = true
				case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_':
				default:
					return false
				}
			}
			return hasDigit
		}
	}

	return false
}

// isCompressible checks if content type benefits from compression
func isCompressible(contentType string) bool {
	compressible := []string{
		"text/html",
		"text/css",
		"text/plain",
		"text/javascript",
		"application/javascript",
		"application/json",
		"image/svg+xml",
	}

	for _, ct := range compressible {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

func getMimeType(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "application/javascript; charset=utf-8"
	case ".json", ".webmanifest":
		return "application/json; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".webp":
		return "image/webp"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
