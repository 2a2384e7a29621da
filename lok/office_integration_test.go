//go:build darwin || freebsd || linux

package lok

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/potatoqualitee/aitools/tools/lokit/bitmap"
	"github.com/potatoqualitee/aitools/tools/lokit/enginetest"
)

// officePath returns the LibreOffice program directory from
// LOKIT_OFFICE_PATH, skipping the test when it is not set.
func officePath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("LOKIT_OFFICE_PATH")
	if path == "" {
		t.Skip("LOKIT_OFFICE_PATH not set; skipping LibreOffice integration test")
	}
	return path
}

// LibreOffice can only be started once per process, so every check against a
// real installation lives in this one test.
func TestOfficeIntegration(t *testing.T) {
	installPath := officePath(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "three.pdf")
	if err := enginetest.WritePDF(input, 3); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}

	o := New(nil)
	defer o.Shutdown()
	if err := o.Init(installPath); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := o.Open(input); err != nil {
		t.Fatalf("Open: %v", err)
	}

	n := o.PartCount()
	if n < 1 {
		t.Fatalf("PartCount() = %d, want >= 1", n)
	}
	if p := o.Part(); p < 0 || p >= n {
		t.Errorf("Part() = %d, want in [0, %d)", p, n)
	}

	bm := bitmap.New(100, 50)
	o.SetPart(n - 1)
	if err := o.RenderPart(bm.Width, bm.Height, bm.Pix); err != nil {
		t.Fatalf("RenderPart: %v", err)
	}
	img, err := bm.RGBA()
	if err != nil {
		t.Fatalf("RGBA: %v", err)
	}
	if img.RGBAAt(0, 0).A == 0 {
		t.Error("rendered page corner is fully transparent")
	}

	out := filepath.Join(dir, "copy.pdf")
	if err := o.SaveAs(out, "pdf"); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("SaveAs produced no output: %v", err)
	}

	if err := o.Open(filepath.Join(dir, "does-not-exist.odt")); err == nil {
		t.Error("Open of a missing file succeeded")
	}
}
