//go:build darwin || freebsd || linux

package lok

import (
	"fmt"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// Slot indices in LibreOfficeKitClass, after nSize.
const (
	officeDestroy = iota
	officeDocumentLoad
	officeGetError
	officeDocumentLoadWithOptions
	officeFreeError
)

// Slot indices in LibreOfficeKitDocumentClass, after nSize.
const (
	documentDestroy = iota
	documentSaveAs
	documentGetDocumentType
	documentGetParts
	documentGetPartPageRectangles
	documentGetPart
	documentSetPart
	documentGetPartName
	documentSetPartMode
	documentPaintTile
	documentGetTileMode
	documentGetDocumentSize
	documentInitializeForRendering
)

func libraryNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{"libmergedlo.dylib", "libsofficeapp.dylib"}
	}
	return []string{"libmergedlo.so", "libsofficeapp.so"}
}

// openLibrary loads the LibreOffice core library from the program directory.
// LibreOffice is never unloaded once started.
func openLibrary(installPath string) (uintptr, error) {
	var result *multierror.Error
	for _, name := range libraryNames() {
		lib, err := purego.Dlopen(filepath.Join(installPath, name), purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
		result = multierror.Append(result, err)
	}
	return 0, result.ErrorOrNil()
}

func loadKit(installPath, userProfileURL string) (uintptr, *officeAPI, error) {
	lib, err := openLibrary(installPath)
	if err != nil {
		return 0, nil, err
	}

	var kit uintptr
	if sym, err := purego.Dlsym(lib, "libreofficekit_hook_2"); err == nil {
		var hook func(installPath string, userProfileURL *byte) uintptr
		purego.RegisterFunc(&hook, sym)
		var profile *byte
		if userProfileURL != "" {
			if profile, err = unix.BytePtrFromString(userProfileURL); err != nil {
				return 0, nil, fmt.Errorf("invalid user profile URL: %w", err)
			}
		}
		kit = hook(installPath, profile)
		runtime.KeepAlive(profile)
	} else {
		if userProfileURL != "" {
			return 0, nil, fmt.Errorf("this LibreOffice does not support a custom user profile")
		}
		sym, err := purego.Dlsym(lib, "libreofficekit_hook")
		if err != nil {
			return 0, nil, err
		}
		var hook func(installPath string) uintptr
		purego.RegisterFunc(&hook, sym)
		kit = hook(installPath)
	}
	if kit == 0 {
		return 0, nil, fmt.Errorf("LibreOfficeKit returned no instance")
	}

	api, err := bindOffice(kit)
	if err != nil {
		return 0, nil, err
	}
	return kit, api, nil
}

// binder registers Go functions for the slots of a LibreOfficeKit class.
// The first missing slot stops further binding.
type binder struct {
	class uintptr
	err   error
}

// classOf returns the pClass pointer stored at the start of an instance.
func classOf(instance uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(instance))
}

func (b *binder) bind(fptr any, slot int, name string) {
	if b.err != nil {
		return
	}
	const ptrSize = unsafe.Sizeof(uintptr(0))
	size := *(*uintptr)(unsafe.Pointer(b.class))
	offset := uintptr(slot+1) * ptrSize
	if offset+ptrSize > size {
		b.err = fmt.Errorf("LibreOfficeKit function %s is not available in this version", name)
		return
	}
	fn := *(*uintptr)(unsafe.Add(unsafe.Pointer(b.class), offset))
	if fn == 0 {
		b.err = fmt.Errorf("LibreOfficeKit function %s is not implemented", name)
		return
	}
	purego.RegisterFunc(fptr, fn)
}

func bindOffice(kit uintptr) (*officeAPI, error) {
	api := &officeAPI{bindDocument: bindDocument}
	b := &binder{class: classOf(kit)}
	b.bind(&api.destroy, officeDestroy, "destroy")
	b.bind(&api.documentLoad, officeDocumentLoad, "documentLoad")
	b.bind(&api.getError, officeGetError, "getError")
	b.bind(&api.freeError, officeFreeError, "freeError")
	if b.err != nil {
		return nil, b.err
	}
	return api, nil
}

func bindDocument(doc uintptr) (*documentAPI, error) {
	api := &documentAPI{}
	b := &binder{class: classOf(doc)}
	b.bind(&api.destroy, documentDestroy, "destroy")
	b.bind(&api.saveAs, documentSaveAs, "saveAs")
	b.bind(&api.getDocumentType, documentGetDocumentType, "getDocumentType")
	b.bind(&api.getParts, documentGetParts, "getParts")
	b.bind(&api.getPart, documentGetPart, "getPart")
	b.bind(&api.setPart, documentSetPart, "setPart")
	b.bind(&api.getPartName, documentGetPartName, "getPartName")
	b.bind(&api.paintTile, documentPaintTile, "paintTile")
	b.bind(&api.getDocumentSize, documentGetDocumentSize, "getDocumentSize")
	b.bind(&api.initializeForRendering, documentInitializeForRendering, "initializeForRendering")
	return api, b.err
}

// goString copies a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	return unix.BytePtrToString((*byte)(unsafe.Pointer(p)))
}
