package merge

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/b-rodrigues/treemerge/pkg/merge/encoding"
)

// lineCountBufSize is the block size used when pre-counting newlines.
const lineCountBufSize = 32 * 1024

// ChunkWriter writes merged output, rotating to a new chunk file whenever
// the next file would push a non-empty chunk past the line limit. A single
// file is never split across chunks, so one file larger than the limit
// still lands whole in its own chunk.
//
// Chunk naming: the base path keeps its name; later chunks insert the part
// index before the extension (out.txt, out.part1.txt, out.part2.txt).
type ChunkWriter struct {
	basePath   string
	splitEvery int
	style      HeaderStyle
	enc        encoding.Handler
	logger     *slog.Logger

	file         *os.File
	w            *bufio.Writer
	chunkIndex   int
	linesInChunk int
	bytesInChunk int64
	filesInChunk int
	totalLines   int64
	chunks       []ChunkInfo
}

// NewChunkWriter prepares a writer; no file is created until the first
// WriteFile call, so an aborted run leaves nothing behind.
func NewChunkWriter(basePath string, splitEvery int, style HeaderStyle, enc encoding.Handler, loggerHandler slog.Handler) *ChunkWriter {
	return &ChunkWriter{
		basePath:   basePath,
		splitEvery: splitEvery,
		style:      style,
		enc:        enc,
		logger:     slog.New(loggerHandler).With(slog.String("component", "writer")),
	}
}

// chunkPath returns the on-disk path of chunk index. Index 0 is the base
// path itself.
func (cw *ChunkWriter) chunkPath(index int) string {
	if index == 0 {
		return cw.basePath
	}
	dir := filepath.Dir(cw.basePath)
	name := filepath.Base(cw.basePath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s%s%d%s", stem, chunkPartSeparator, index, ext))
}

// WriteFile appends one source file to the output: header, blank line,
// then the content verbatim (or decoded, when an encoding handler is set).
// Returns the content line count and the chunk index the file landed in.
func (cw *ChunkWriter) WriteFile(relPath, absPath string) (int, int, error) {
	lines, err := cw.countLines(absPath)
	if err != nil {
		return 0, 0, err
	}

	needed := cw.style.headerLines() + lines
	if cw.splitEvery > 0 && cw.linesInChunk > 0 && cw.linesInChunk+needed > cw.splitEvery {
		if err := cw.rotate(); err != nil {
			return 0, 0, err
		}
	}
	if cw.file == nil {
		if err := cw.openChunk(); err != nil {
			return 0, 0, err
		}
	}

	if err := cw.writeHeader(relPath); err != nil {
		return 0, 0, err
	}
	if err := cw.copyContent(absPath); err != nil {
		return 0, 0, err
	}

	cw.linesInChunk += needed
	cw.totalLines += int64(needed)
	cw.filesInChunk++
	return lines, cw.chunkIndex, nil
}

// countLines counts content lines before anything is written, so rotation
// happens first. Trailing bytes without a final newline count as one line.
// With an encoding handler the decoded stream is counted, matching what
// will be written.
func (cw *ChunkWriter) countLines(absPath string) (int, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrReadFailed, absPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if cw.enc != nil {
		r = cw.enc.NewUTF8Reader(f)
	}

	buf := make([]byte, lineCountBufSize)
	lines := 0
	trailing := false
	for {
		n, readErr := r.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				lines++
				trailing = false
			} else {
				trailing = true
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrReadFailed, absPath, readErr)
		}
	}
	if trailing {
		lines++
	}
	return lines, nil
}

func (cw *ChunkWriter) openChunk() error {
	p := cw.chunkPath(cw.chunkIndex)
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, p, err)
	}
	cw.file = f
	cw.w = bufio.NewWriter(f)
	cw.logger.Debug("Opened output chunk", slog.Int("index", cw.chunkIndex), slog.String("path", p))
	return nil
}

// rotate closes the current chunk and arranges for the next WriteFile to
// open the successor.
func (cw *ChunkWriter) rotate() error {
	if err := cw.closeCurrent(); err != nil {
		return err
	}
	cw.chunkIndex++
	return nil
}

func (cw *ChunkWriter) closeCurrent() error {
	if cw.file == nil {
		return nil
	}
	p := cw.chunkPath(cw.chunkIndex)
	if err := cw.w.Flush(); err != nil {
		cw.file.Close()
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, p, err)
	}
	if err := cw.file.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, p, err)
	}
	cw.chunks = append(cw.chunks, ChunkInfo{
		Index: cw.chunkIndex,
		Path:  p,
		Files: cw.filesInChunk,
		Lines: cw.linesInChunk,
		Bytes: cw.bytesInChunk,
	})
	cw.file = nil
	cw.w = nil
	cw.linesInChunk = 0
	cw.bytesInChunk = 0
	cw.filesInChunk = 0
	return nil
}

func (cw *ChunkWriter) writeHeader(relPath string) error {
	var header string
	switch cw.style {
	case HeaderPlain:
		header = fmt.Sprintf(">>> %s\n", relPath)
	case HeaderUnderline:
		header = fmt.Sprintf("%s\n%s\n", relPath, strings.Repeat("=", len(relPath)))
	default:
		header = fmt.Sprintf("########## %s\n", relPath)
	}
	// The blank separator line is part of the header block but not of the
	// chunk's line budget.
	header += "\n"
	n, err := cw.w.WriteString(header)
	cw.bytesInChunk += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, cw.chunkPath(cw.chunkIndex), err)
	}
	return nil
}

func (cw *ChunkWriter) copyContent(absPath string) error {
	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReadFailed, absPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if cw.enc != nil {
		r = cw.enc.NewUTF8Reader(f)
	}
	n, err := io.Copy(cw.w, r)
	cw.bytesInChunk += n
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, cw.chunkPath(cw.chunkIndex), err)
	}
	return nil
}

// Close flushes and finalizes the last chunk.
func (cw *ChunkWriter) Close() error {
	return cw.closeCurrent()
}

// Chunks lists the finalized chunks. Valid after Close.
func (cw *ChunkWriter) Chunks() []ChunkInfo {
	return cw.chunks
}

// TotalLines is the number of budgeted lines written across all chunks
// (headers plus content, excluding blank separators).
func (cw *ChunkWriter) TotalLines() int64 {
	return cw.totalLines
}
