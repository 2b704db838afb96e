// Package textclass decides whether a file's bytes should be treated as
// text. With a non-empty extension allowlist the decision is purely
// name-based; otherwise a bounded prefix of the file is sniffed.
package textclass

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
)

const (
	// SniffLen bounds how much of a file is read for classification. Large
	// files are never loaded whole.
	SniffLen = 8 * 1024
	// mimeSniffLen is the window http.DetectContentType actually inspects.
	mimeSniffLen = 512
	// plainUTF8 is the DetectContentType fallback for anything without
	// control bytes.
	plainUTF8 = "text/plain; charset=utf-8"
)

// Text-leaning MIME types beyond the "text/" prefix that DetectContentType
// can produce. application/octet-stream is deliberately absent: it is the
// sniffer's "don't know" answer and falls through to the byte-level checks.
var textMIMEPrefixes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"image/svg+xml":          true,
}

// Result carries the classification and the sniffed prefix, so callers that
// also need content (language detection) avoid a second read.
type Result struct {
	Text   bool
	Reason string
	// Prefix is the sniffed head of the file. Empty in allowlist mode,
	// where no content is read.
	Prefix []byte
}

// Classifier reports whether a file should be merged as text. Implementations
// must be side-effect-free beyond a bounded read and safe for concurrent use.
type Classifier interface {
	Classify(path string) (Result, error)
}

type sniffClassifier struct {
	allowExts map[string]struct{}
}

// New builds a Classifier. A non-empty allowlist is authoritative: matching
// is case-insensitive on the extension (with or without a leading dot) and
// file content is never consulted. With an empty allowlist, classification
// reads up to SniffLen bytes and sniffs.
func New(allowlist []string) Classifier {
	c := &sniffClassifier{}
	if len(allowlist) > 0 {
		c.allowExts = make(map[string]struct{}, len(allowlist))
		for _, e := range allowlist {
			e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(e, ".")))
			if e != "" {
				c.allowExts[e] = struct{}{}
			}
		}
	}
	return c
}

// Classify implements Classifier.
func (c *sniffClassifier) Classify(path string) (Result, error) {
	if c.allowExts != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if ext == "" {
			return Result{Text: false, Reason: "no extension"}, nil
		}
		if _, ok := c.allowExts[ext]; ok {
			return Result{Text: true, Reason: "extension allowlist"}, nil
		}
		return Result{Text: false, Reason: "extension not in allowlist"}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Result{}, err
	}
	prefix := buf[:n]

	if n == 0 {
		return Result{Text: false, Reason: "empty file"}, nil
	}

	res := Result{Prefix: prefix}

	sniffEnd := n
	if sniffEnd > mimeSniffLen {
		sniffEnd = mimeSniffLen
	}
	contentType := http.DetectContentType(prefix[:sniffEnd])
	// plainUTF8 is DetectContentType's heuristic fallback, not a signature
	// match; it fires for arbitrary high-byte garbage, so only firmer
	// verdicts (HTML/XML sigs, BOMs, svg, ...) settle the decision here.
	if contentType != plainUTF8 && isTextMIME(contentType) {
		res.Text = true
		res.Reason = contentType
		return res, nil
	}

	if enry.IsBinary(prefix) {
		res.Text = false
		res.Reason = "binary content"
		return res, nil
	}

	if validUTF8Prefix(prefix, n == SniffLen) {
		res.Text = true
		res.Reason = "utf-8 content"
		return res, nil
	}
	res.Text = false
	res.Reason = "not valid utf-8"
	return res, nil
}

func isTextMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if textMIMEPrefixes[mimeType] {
		return true
	}
	return strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json")
}

// validUTF8Prefix checks UTF-8 validity of a sniffed prefix. When the read
// was truncated at SniffLen the cut may have landed inside a multi-byte
// rune, so up to utf8.UTFMax-1 trailing continuation bytes are dropped
// before validating.
func validUTF8Prefix(p []byte, truncated bool) bool {
	if truncated {
		for i := 0; i < utf8.UTFMax-1 && len(p) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(p); r != utf8.RuneError {
				break
			}
			p = p[:len(p)-1]
		}
	}
	return utf8.Valid(p)
}
