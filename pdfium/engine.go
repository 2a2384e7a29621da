// Package pdfium implements engine.Engine for PDF files on top of PDFium
// compiled to WebAssembly, so no native installation is required.
package pdfium

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	xdraw "golang.org/x/image/draw"

	"github.com/potatoqualitee/aitools/tools/lokit/bitmap"
	"github.com/potatoqualitee/aitools/tools/lokit/engine"
)

const instanceTimeout = 30 * time.Second

// Engine renders and re-saves PDF documents. Parts are pages.
type Engine struct {
	Logger *slog.Logger

	pool     pdfium.Pool
	instance pdfium.Pdfium

	doc   references.FPDF_DOCUMENT
	open  bool
	pages int
	page  int
}

var _ engine.Engine = (*Engine)(nil)

// New returns an uninitialized Engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Init starts a single PDFium worker. The runtime is embedded, so path is
// only recorded in the log.
func (e *Engine) Init(path string) error {
	if e.open {
		return engine.ErrDocumentOpen
	}
	e.Shutdown()

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return engine.Errorf("Unable to initialize PDFium: %v", err)
	}
	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		pool.Close()
		return engine.Errorf("Unable to get PDFium instance: %v", err)
	}
	e.pool, e.instance = pool, instance
	e.logger().Debug("pdfium initialized", "path", path)
	return nil
}

// Shutdown closes the document and releases the worker pool.
func (e *Engine) Shutdown() {
	e.Close()
	if e.instance != nil {
		e.instance.Close()
		e.instance = nil
	}
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
}

func (e *Engine) IsInitialized() bool {
	return e.instance != nil
}

func (e *Engine) Open(path string) error {
	if !e.IsInitialized() {
		return engine.ErrNotInitialized
	}
	if strings.HasPrefix(path, engine.FileURLPrefix) {
		return engine.ErrFileURL
	}
	e.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Errorf("Unable to read %s: %v", path, err)
	}
	doc, err := e.instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		return engine.Errorf("Unable to open %s: %v", path, err)
	}
	count, err := e.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		e.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		return engine.Errorf("Unable to count pages of %s: %v", path, err)
	}

	e.doc, e.open = doc.Document, true
	e.pages, e.page = count.PageCount, 0
	e.logger().Info("document opened", "path", path, "parts", e.pages)
	return nil
}

func (e *Engine) Close() {
	if !e.open {
		return
	}
	e.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: e.doc})
	e.open = false
	e.pages, e.page = 0, 0
}

func (e *Engine) IsOpen() bool {
	return e.open
}

func (e *Engine) mustBeOpen() {
	if !e.open {
		panic("pdfium: " + engine.ErrNoDocument.Error())
	}
}

func (e *Engine) PartCount() int {
	e.mustBeOpen()
	return e.pages
}

func (e *Engine) Part() int {
	e.mustBeOpen()
	return e.page
}

func (e *Engine) SetPart(part int) {
	e.mustBeOpen()
	if part < 0 || part >= e.pages {
		panic(fmt.Sprintf("pdfium: part %d out of range [0, %d)", part, e.pages))
	}
	e.page = part
}

// RenderPart renders the current page stretched to exactly width×height.
func (e *Engine) RenderPart(width, height int, buf []byte) error {
	if !e.open {
		return engine.ErrNoDocument
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid render size %dx%d", width, height)
	}
	if need := engine.BufferSize(width, height); len(buf) < need {
		return fmt.Errorf("render buffer holds %d bytes, need %d", len(buf), need)
	}

	page := requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: e.doc,
			Index:    e.page,
		},
	}
	e.logger().Debug("rendering page",
		"part", e.page,
		"pixels", fmt.Sprintf("%dx%d", width, height))

	render, err := e.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page:   page,
		Width:  width,
		Height: height,
	})
	if err != nil {
		return engine.Errorf("Unable to render page %d: %v", e.page, err)
	}
	defer render.Cleanup()

	img := render.Result.Image
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		// PDFium keeps the page aspect ratio; the canvas is filled regardless.
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = scaled
	}
	return bitmap.PutRGBA(buf, img)
}

// SaveAs writes a copy of the open document. Only the "pdf" format exists.
func (e *Engine) SaveAs(path, format string) error {
	if !e.open {
		return engine.ErrNoDocument
	}
	if strings.HasPrefix(path, engine.FileURLPrefix) {
		return engine.ErrFileURL
	}
	if !strings.EqualFold(format, "pdf") {
		return engine.Errorf("PDFium cannot export to format %q", format)
	}
	saved, err := e.instance.FPDF_SaveAsCopy(&requests.FPDF_SaveAsCopy{
		Document: e.doc,
	})
	if err != nil {
		return engine.Errorf("Unable to save %s: %v", path, err)
	}
	if saved.FileBytes == nil {
		return engine.Errorf("Unable to save %s: PDFium returned no data", path)
	}
	if err := os.WriteFile(path, *saved.FileBytes, 0644); err != nil {
		return engine.Errorf("Unable to write %s: %v", path, err)
	}
	e.logger().Info("document saved", "path", path, "format", format)
	return nil
}
