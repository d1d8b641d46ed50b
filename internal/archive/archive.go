// Package archive decides where downloaded alerts, skymaps and MOCs land
// on disk.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Layout places output files either flat in one directory with long unique
// names, or organised into a <superevent>/<alert_type>/ tree.
type Layout struct {
	Dir      string
	Organise bool
}

// NoticePath is where the raw alert JSON goes.
func (l Layout) NoticePath(superevent, alertType string) string {
	if l.Organise {
		return filepath.Join(l.Dir, superevent, alertType, "alert.json")
	}
	return filepath.Join(l.Dir, fmt.Sprintf("%s_%s.json", superevent, alertType))
}

// SkymapPath is where the raw multi-order skymap FITS goes.
func (l Layout) SkymapPath(superevent, alertType string) string {
	if l.Organise {
		return filepath.Join(l.Dir, superevent, alertType, "skymap.multiorder.fits")
	}
	return filepath.Join(l.Dir, fmt.Sprintf("%s_%s_skymap.multiorder.fits", superevent, alertType))
}

// MOCPath is where the MOC for one contour level (percent) goes.
func (l Layout) MOCPath(superevent, alertType string, level float64) string {
	if l.Organise {
		return filepath.Join(l.Dir, superevent, alertType, FormatLevel(level)+".moc")
	}
	return filepath.Join(l.Dir, fmt.Sprintf("%s_%s_%s.moc", superevent, alertType, FormatLevel(level)))
}

// FormatLevel renders a percent contour level without trailing zeros:
// 90 -> "90", 99.5 -> "99.5".
func FormatLevel(level float64) string {
	return strconv.FormatFloat(level, 'f', -1, 64)
}

// Write writes data to path, creating parent directories as needed.
// Re-delivered notices overwrite their earlier files.
func Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates path as a directory if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
