package pdfium

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/potatoqualitee/aitools/tools/lokit/engine"
	"github.com/potatoqualitee/aitools/tools/lokit/enginetest"
)

func TestEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("starting the PDFium runtime is slow")
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "three.pdf")
	if err := enginetest.WritePDF(input, 3); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}

	e := New(nil)
	defer e.Shutdown()

	if err := e.Open(input); !errors.Is(err, engine.ErrNotInitialized) {
		t.Fatalf("Open before Init error = %v, want ErrNotInitialized", err)
	}
	if err := e.Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !e.IsInitialized() {
		t.Fatal("IsInitialized() = false after Init")
	}
	if err := e.Open(engine.FileURLPrefix + input); !errors.Is(err, engine.ErrFileURL) {
		t.Errorf("Open with URL error = %v, want ErrFileURL", err)
	}
	if err := e.Open(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("Open of a missing file succeeded")
	}
	if err := e.Open(input); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := e.PartCount(); got != 3 {
		t.Fatalf("PartCount() = %d, want 3", got)
	}
	if got := e.Part(); got != 0 {
		t.Errorf("Part() = %d, want 0", got)
	}
	if err := e.Init(""); !errors.Is(err, engine.ErrDocumentOpen) {
		t.Errorf("Init with open document error = %v, want ErrDocumentOpen", err)
	}

	t.Run("render", func(t *testing.T) {
		e.SetPart(2)
		buf := make([]byte, engine.BufferSize(100, 50))
		if err := e.RenderPart(100, 50, buf); err != nil {
			t.Fatalf("RenderPart: %v", err)
		}
		if bytes.Count(buf, []byte{0}) == len(buf) {
			t.Error("rendered buffer is empty")
		}
		if err := e.RenderPart(100, 50, buf[:100]); err == nil {
			t.Error("RenderPart accepted a short buffer")
		}
	})

	t.Run("save", func(t *testing.T) {
		out := filepath.Join(dir, "copy.pdf")
		if err := e.SaveAs(out, "pdf"); err != nil {
			t.Fatalf("SaveAs: %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading copy: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Errorf("copy does not start with %%PDF: %q", data[:min(len(data), 8)])
		}

		var engineErr *engine.Error
		if err := e.SaveAs(filepath.Join(dir, "copy.docx"), "docx"); !errors.As(err, &engineErr) {
			t.Errorf("SaveAs docx error = %v, want *engine.Error", err)
		}
	})

	e.Close()
	if e.IsOpen() {
		t.Error("IsOpen() = true after Close")
	}
	if err := e.RenderPart(10, 10, make([]byte, 400)); !errors.Is(err, engine.ErrNoDocument) {
		t.Errorf("RenderPart after Close error = %v, want ErrNoDocument", err)
	}
}
