// Package enginetest provides an in-memory engine and document fixtures for
// tests of code that drives an engine.Engine.
package enginetest

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/potatoqualitee/aitools/tools/lokit/engine"
)

// PartColors are the ARGB32 words Fake paints, indexed by part modulo length.
var PartColors = []uint32{0xFFFF0000, 0xFF00FF00, 0xFF0000FF, 0xFFFFFFFF}

// Fake is an engine.Engine that records calls and paints each part a solid
// colour from PartColors.
type Fake struct {
	Parts int

	// Paths containing these substrings fail the matching call.
	FailInit string
	FailOpen string
	FailSave string

	Calls []string

	initialized bool
	open        bool
	part        int
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func matches(path, pattern string) bool {
	return pattern != "" && strings.Contains(path, pattern)
}

func (f *Fake) Init(path string) error {
	if f.open {
		return engine.ErrDocumentOpen
	}
	f.Shutdown()
	f.record("Init %s", path)
	if matches(path, f.FailInit) {
		return engine.Errorf("Unable to initialize office from %s", path)
	}
	f.initialized = true
	return nil
}

func (f *Fake) Shutdown() {
	f.Close()
	if f.initialized {
		f.record("Shutdown")
	}
	f.initialized = false
}

func (f *Fake) IsInitialized() bool { return f.initialized }

func (f *Fake) Open(path string) error {
	if !f.initialized {
		return engine.ErrNotInitialized
	}
	if strings.HasPrefix(path, engine.FileURLPrefix) {
		return engine.ErrFileURL
	}
	f.Close()
	f.record("Open %s", path)
	if matches(path, f.FailOpen) {
		return engine.Errorf("Unsupported URL <%s%s>", engine.FileURLPrefix, path)
	}
	f.open = true
	f.part = 0
	return nil
}

func (f *Fake) Close() {
	if f.open {
		f.record("Close")
	}
	f.open = false
}

func (f *Fake) IsOpen() bool { return f.open }

func (f *Fake) PartCount() int {
	f.mustBeOpen()
	return f.Parts
}

func (f *Fake) Part() int {
	f.mustBeOpen()
	return f.part
}

func (f *Fake) SetPart(part int) {
	f.mustBeOpen()
	if part < 0 || part >= f.Parts {
		panic(fmt.Sprintf("enginetest: part %d out of range [0, %d)", part, f.Parts))
	}
	f.part = part
}

func (f *Fake) RenderPart(width, height int, buf []byte) error {
	if !f.open {
		return engine.ErrNoDocument
	}
	if len(buf) < engine.BufferSize(width, height) {
		return fmt.Errorf("render buffer holds %d bytes, need %d", len(buf), engine.BufferSize(width, height))
	}
	f.record("RenderPart %d %dx%d", f.part, width, height)
	color := PartColors[f.part%len(PartColors)]
	for i := 0; i < width*height; i++ {
		binary.NativeEndian.PutUint32(buf[i*engine.BytesPerPixel:], color)
	}
	return nil
}

// SaveAs writes a one-line placeholder naming the format to path.
func (f *Fake) SaveAs(path, format string) error {
	if !f.open {
		return engine.ErrNoDocument
	}
	f.record("SaveAs %s %s", path, format)
	if matches(path, f.FailSave) {
		return engine.Errorf("Unable to save %s", path)
	}
	return os.WriteFile(path, []byte(format+"\n"), 0644)
}

func (f *Fake) mustBeOpen() {
	if !f.open {
		panic("enginetest: " + engine.ErrNoDocument.Error())
	}
}

// WritePDF writes a PDF with the given number of A4 pages to path.
func WritePDF(path string, pages int) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 24)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("Page %d", i+1))
	}
	return pdf.OutputFileAndClose(path)
}
