// Package lok drives LibreOffice in-process through LibreOfficeKit.
//
// An Office owns at most one LibreOfficeKit instance and at most one loaded
// document. Calls block until LibreOffice returns and must not be made from
// more than one goroutine at a time.
package lok

import (
	"fmt"
	"log/slog"

	"github.com/potatoqualitee/aitools/tools/lokit/engine"
)

// DocumentType is the kind of document LibreOffice loaded.
type DocumentType int

const (
	Text DocumentType = iota
	Spreadsheet
	Presentation
	Drawing
	Other
)

func (t DocumentType) String() string {
	switch t {
	case Text:
		return "text"
	case Spreadsheet:
		return "spreadsheet"
	case Presentation:
		return "presentation"
	case Drawing:
		return "drawing"
	}
	return "other"
}

// officeAPI holds the LibreOfficeKitClass entry points used by Office.
type officeAPI struct {
	destroy      func(kit uintptr)
	documentLoad func(kit uintptr, url string) uintptr
	getError     func(kit uintptr) uintptr
	freeError    func(msg uintptr)
	bindDocument func(doc uintptr) (*documentAPI, error)
}

// documentAPI holds the LibreOfficeKitDocumentClass entry points used by Office.
type documentAPI struct {
	destroy                func(doc uintptr)
	saveAs                 func(doc uintptr, url, format, filterOptions string) int32
	getDocumentType        func(doc uintptr) int32
	getParts               func(doc uintptr) int32
	getPart                func(doc uintptr) int32
	setPart                func(doc uintptr, part int32)
	getPartName            func(doc uintptr, part int32) uintptr
	paintTile              func(doc uintptr, buf *byte, canvasWidth, canvasHeight, tileX, tileY, tileWidth, tileHeight int32)
	getDocumentSize        func(doc uintptr, width, height *int)
	initializeForRendering func(doc uintptr, arguments string)
}

type loadFunc func(installPath, userProfileURL string) (uintptr, *officeAPI, error)

// Office is a LibreOfficeKit instance with its open document.
// The zero value is ready to use.
type Office struct {
	// UserProfileURL, when set, points LibreOffice at a dedicated user
	// profile (a file:// URL). It is read by Init.
	UserProfileURL string
	Logger         *slog.Logger

	load   loadFunc
	kit    uintptr
	api    *officeAPI
	doc    uintptr
	docAPI *documentAPI
}

var _ engine.Engine = (*Office)(nil)

// New returns an uninitialized Office.
func New(logger *slog.Logger) *Office {
	return &Office{Logger: logger}
}

func (o *Office) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Init shuts down any running instance and starts LibreOffice from the
// program directory installPath.
func (o *Office) Init(installPath string) error {
	if o.IsOpen() {
		return engine.ErrDocumentOpen
	}
	o.Shutdown()

	load := o.load
	if load == nil {
		load = loadKit
	}
	kit, api, err := load(installPath, o.UserProfileURL)
	if err != nil {
		return engine.Errorf("Unable to initialize office from %s: %v", installPath, err)
	}
	o.kit, o.api = kit, api
	o.logger().Debug("office initialized", "path", installPath)
	return nil
}

// Shutdown closes the document and destroys the LibreOfficeKit instance.
func (o *Office) Shutdown() {
	o.Close()
	if o.kit == 0 {
		return
	}
	o.api.destroy(o.kit)
	o.kit, o.api = 0, nil
	o.logger().Debug("office shut down")
}

func (o *Office) IsInitialized() bool {
	return o.kit != 0
}

// Open closes any open document and loads the file at path. The path must be
// a plain filesystem path; Office adds the file:// scheme itself.
func (o *Office) Open(path string) error {
	if !o.IsInitialized() {
		return engine.ErrNotInitialized
	}
	url, err := engine.FileURL(path)
	if err != nil {
		return err
	}
	o.Close()

	doc := o.api.documentLoad(o.kit, url)
	if doc == 0 {
		return o.lastError()
	}
	api, err := o.api.bindDocument(doc)
	if err != nil {
		if api != nil && api.destroy != nil {
			api.destroy(doc)
		}
		return engine.Errorf("Unable to bind document %s: %v", path, err)
	}
	api.initializeForRendering(doc, "")
	o.doc, o.docAPI = doc, api

	o.logger().Info("document opened",
		"path", path,
		"type", o.DocumentType().String(),
		"parts", o.PartCount())
	return nil
}

// Close releases the open document, if any.
func (o *Office) Close() {
	if o.doc == 0 {
		return
	}
	o.docAPI.destroy(o.doc)
	o.doc, o.docAPI = 0, nil
}

func (o *Office) IsOpen() bool {
	return o.doc != 0
}

func (o *Office) mustBeOpen() {
	if !o.IsOpen() {
		panic("lok: " + engine.ErrNoDocument.Error())
	}
}

// PartCount returns the number of pages, slides or sheets.
func (o *Office) PartCount() int {
	o.mustBeOpen()
	return int(o.docAPI.getParts(o.doc))
}

// Part returns the current part index.
func (o *Office) Part() int {
	o.mustBeOpen()
	return int(o.docAPI.getPart(o.doc))
}

// SetPart selects the part that RenderPart paints. It panics if part is not
// in [0, PartCount()).
func (o *Office) SetPart(part int) {
	if n := o.PartCount(); part < 0 || part >= n {
		panic(fmt.Sprintf("lok: part %d out of range [0, %d)", part, n))
	}
	o.docAPI.setPart(o.doc, int32(part))
}

// PartName returns the name LibreOffice gives a part, such as a sheet name.
func (o *Office) PartName(part int) string {
	o.mustBeOpen()
	p := o.docAPI.getPartName(o.doc, int32(part))
	if p == 0 {
		return ""
	}
	// The name is malloc'd by LibreOffice; freeError is its free().
	defer o.api.freeError(p)
	return goString(p)
}

// DocumentType reports what kind of document is open.
func (o *Office) DocumentType() DocumentType {
	o.mustBeOpen()
	t := DocumentType(o.docAPI.getDocumentType(o.doc))
	if t < Text || t > Other {
		return Other
	}
	return t
}

// RenderPart paints the whole current part, scaled to width×height, into buf.
func (o *Office) RenderPart(width, height int, buf []byte) error {
	if !o.IsOpen() {
		return engine.ErrNoDocument
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid render size %dx%d", width, height)
	}
	if need := engine.BufferSize(width, height); len(buf) < need {
		return fmt.Errorf("render buffer holds %d bytes, need %d", len(buf), need)
	}

	var partWidth, partHeight int
	o.docAPI.getDocumentSize(o.doc, &partWidth, &partHeight)
	o.logger().Debug("painting part",
		"part", o.Part(),
		"twips", fmt.Sprintf("%dx%d", partWidth, partHeight),
		"pixels", fmt.Sprintf("%dx%d", width, height))
	o.docAPI.paintTile(o.doc, &buf[0],
		int32(width), int32(height),
		0, 0, int32(partWidth), int32(partHeight))
	return nil
}

// SaveAs writes the open document to path using the LibreOffice filter
// format name, such as "pdf" or "docx". An existing file is overwritten.
func (o *Office) SaveAs(path, format string) error {
	if !o.IsOpen() {
		return engine.ErrNoDocument
	}
	url, err := engine.FileURL(path)
	if err != nil {
		return err
	}
	if o.docAPI.saveAs(o.doc, url, format, "") == 0 {
		return o.lastError()
	}
	o.logger().Info("document saved", "path", path, "format", format)
	return nil
}

// lastError copies LibreOffice's last error message and releases the
// engine-owned buffer.
func (o *Office) lastError() error {
	msg := o.api.getError(o.kit)
	if msg == 0 {
		return engine.Errorf("LibreOffice reported a failure without a message")
	}
	defer o.api.freeError(msg)
	return &engine.Error{Message: goString(msg)}
}
