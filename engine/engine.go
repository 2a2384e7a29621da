// Package engine defines the contract shared by the document engines lokit
// can drive, and the errors they report.
package engine

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one ARGB32 pixel in a render buffer.
const BytesPerPixel = 4

// FileURLPrefix is the scheme engines expect in front of local paths.
const FileURLPrefix = "file://"

var (
	ErrNotInitialized = errors.New("engine is not initialized")
	ErrNoDocument     = errors.New("no document is open")
	ErrDocumentOpen   = errors.New("a document is still open")
	ErrFileURL        = errors.New("path must not carry the " + FileURLPrefix + " prefix")
)

// Error carries a failure message reported by the engine itself.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf returns an *Error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Engine is an office or PDF engine holding at most one open document.
//
// Implementations are not safe for concurrent use. The document lifetime is
// nested in the engine lifetime: Shutdown closes the document first.
type Engine interface {
	// Init shuts down any running instance and starts a new one from path.
	// It fails with ErrDocumentOpen while a document is open.
	Init(path string) error
	// Shutdown closes the document and releases the engine. It is idempotent.
	Shutdown()
	IsInitialized() bool

	// Open closes any open document and loads the file at path, which must
	// be a plain filesystem path.
	Open(path string) error
	// Close releases the open document, if any.
	Close()
	IsOpen() bool

	// PartCount, Part and SetPart require an open document.
	PartCount() int
	Part() int
	SetPart(part int)

	// RenderPart rasterizes the whole current part scaled to width×height
	// into buf, which must hold BufferSize(width, height) bytes. Pixels are
	// ARGB32 words (0xAARRGGBB) in host byte order.
	RenderPart(width, height int, buf []byte) error

	// SaveAs writes the open document to path in the given format,
	// overwriting any existing file.
	SaveAs(path, format string) error
}

// BufferSize returns the number of bytes needed to render width×height pixels.
func BufferSize(width, height int) int {
	return BytesPerPixel * width * height
}
