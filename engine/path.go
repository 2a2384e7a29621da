package engine

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FileURL turns a plain filesystem path into the absolute file URL engines
// load from and save to.
func FileURL(path string) (string, error) {
	if strings.HasPrefix(path, FileURLPrefix) {
		return "", ErrFileURL
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		// Windows drive paths: file:///C:/...
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}
