// Package encoding provides optional transcoding of source files to UTF-8
// while they are merged. When no source encoding is configured the merge
// copies bytes verbatim and this package stays out of the data path.
package encoding

import (
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Handler wraps source readers with a decoder producing UTF-8.
type Handler interface {
	// NewUTF8Reader returns a reader yielding the UTF-8 decoding of r.
	NewUTF8Reader(r io.Reader) io.Reader
	// Name reports the canonical IANA name of the source encoding.
	Name() string
}

type charsetHandler struct {
	enc  encoding.Encoding
	name string
}

// NewCharsetHandler resolves name (an IANA charset label, e.g. "latin1",
// "windows-1252", "shift_jis") via the x/net charset tables. Unknown labels
// are a configuration error and are rejected here, before any file is read.
func NewCharsetHandler(name string) (Handler, error) {
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return nil, fmt.Errorf("unknown source encoding %q", name)
	}
	return &charsetHandler{enc: enc, name: canonical}, nil
}

func (h *charsetHandler) NewUTF8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, h.enc.NewDecoder())
}

func (h *charsetHandler) Name() string { return h.name }
