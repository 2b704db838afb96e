// Package language identifies the programming language of merged files for
// reporting and progress display. Best effort: detection failures degrade
// to "plaintext", never to an error.
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Detector determines the language of a file from its name and a content
// prefix. Implementations must be safe for concurrent use.
type Detector interface {
	// Detect returns a lowercase language identifier and an indicative
	// confidence in [0,1]. Content may be a bounded prefix of the file.
	Detect(content []byte, relPath string) (string, float64)
}

type enryDetector struct{}

// NewEnryDetector returns the default go-enry based Detector.
func NewEnryDetector() Detector {
	return enryDetector{}
}

// Detect tries combined content+filename detection first, then extension
// and well-known-filename fallbacks.
func (enryDetector) Detect(content []byte, relPath string) (string, float64) {
	if len(content) == 0 {
		return "plaintext", 0.0
	}

	filename := filepath.Base(relPath)

	if lang := enry.GetLanguage(filename, content); lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.8
	}
	if lang, safe := enry.GetLanguageByExtension(relPath); safe && lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.5
	}
	if lang, safe := enry.GetLanguageByFilename(filename); safe && lang != "" && lang != "Text" {
		return strings.ToLower(lang), 0.5
	}
	return "plaintext", 0.0
}
