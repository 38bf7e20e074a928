// Package gzippedhttp transparently decompresses gzip request bodies
// and compresses responses for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var writerPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

type compressedResponseWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func (w *compressedResponseWriter) Write(b []byte) (int, error) {
	return w.zw.Write(b)
}

// WithGzipCompression is an HTTP middleware that unwraps gzipped
// request bodies and gzips response bodies when the client sends
// Accept-Encoding: gzip.
func WithGzipCompression(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			zr, err := gzip.NewReader(request.Body)
			if err != nil {
				http.Error(response, err.Error(), http.StatusBadRequest)
				return
			}
			defer zr.Close()
			request.Body = io.NopCloser(zr)
		}

		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		zw := writerPool.Get().(*gzip.Writer)
		zw.Reset(response)
		defer func() {
			zw.Close()
			writerPool.Put(zw)
		}()

		response.Header().Set("Content-Encoding", "gzip")
		h.ServeHTTP(&compressedResponseWriter{ResponseWriter: response, zw: zw}, request)
	})
}
