package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Extension is the on-disk suffix of every backup artifact.
const Extension = ".img"

// sizeHintSuffix is a directive consumed by the imaging tool to pre-size a
// new image file. Legacy behavior, applied only via WithSizeHint.
const sizeHintSuffix = ",,1024"

var ErrDirectoryNotFound = errors.New("directory does not exist or is not a directory")

// Derive computes the full artifact path for a backup of the given directory.
// The name is uniquely determined by (prefix, month+year of now, weekday flag):
//
//	plain:   {prefix}_{MMYYYY}.img
//	weekday: {Weekday}_{prefix}_{MMYYYY}.img
//
// Derive never creates or stats the artifact itself; it only requires dir to
// be an existing directory.
func Derive(dir, prefix string, now time.Time, weekday bool) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	dateComponent := now.Format("012006") // MMYYYY

	name := fmt.Sprintf("%s_%s%s", prefix, dateComponent, Extension)
	if weekday {
		name = fmt.Sprintf("%s_%s", now.Weekday(), name)
	}

	return filepath.Join(dir, name), nil
}

// WithSizeHint appends the pre-size directive when the artifact does not yet
// exist on disk. Existing artifacts are passed through unchanged so the
// imaging tool overwrites in place.
func WithSizeHint(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return path + sizeHintSuffix
}
