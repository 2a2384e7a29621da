//go:build !(darwin || freebsd || linux)

package lok

import (
	"fmt"
	"runtime"
)

func loadKit(installPath, userProfileURL string) (uintptr, *officeAPI, error) {
	return 0, nil, fmt.Errorf("LibreOfficeKit is not supported on %s", runtime.GOOS)
}

func goString(p uintptr) string {
	return ""
}
