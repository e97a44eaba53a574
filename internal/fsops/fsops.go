package fsops

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// PreConversionDirectoryName holds original .docx files after conversion.
// The inventory never descends into it.
const PreConversionDirectoryName = "base_docx_pre-conversion"

const safeMoveTimestampLayout = "20060102_150405"

// FS is an abstract filesystem used across the app and tests.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm os.FileMode) error
	WalkDir(root string, fn fs.WalkDirFunc) error

	Join(elem ...string) string
	Base(name string) string
	Dir(name string) string
	Ext(name string) string
	Clean(name string) string
}

// ---------- OS-backed implementation ----------

type OS struct{}

func NewOS() OS { return OS{} }

func (OS) ReadFile(name string) ([]byte, error) { return os.ReadFile(filepath.Clean(name)) }
func (OS) WriteFile(name string, b []byte, p os.FileMode) error {
	return os.WriteFile(filepath.Clean(name), b, p)
}
func (OS) Stat(name string) (fs.FileInfo, error)     { return os.Stat(filepath.Clean(name)) }
func (OS) Rename(a, b string) error                  { return os.Rename(a, b) }
func (OS) MkdirAll(path string, p os.FileMode) error { return os.MkdirAll(filepath.Clean(path), p) }
func (OS) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(filepath.Clean(root), fn)
}
func (OS) Join(elem ...string) string { return filepath.Join(elem...) }
func (OS) Base(name string) string    { return filepath.Base(name) }
func (OS) Dir(name string) string     { return filepath.Dir(name) }
func (OS) Ext(name string) string     { return filepath.Ext(name) }
func (OS) Clean(name string) string   { return filepath.Clean(name) }

// ---------- In-memory implementation (for tests/integration) ----------

type Mem struct{ Fs afero.Fs }

func NewMem() Mem { return Mem{Fs: afero.NewMemMapFs()} }

func (m Mem) ReadFile(name string) ([]byte, error) { return afero.ReadFile(m.Fs, filepath.Clean(name)) }
func (m Mem) WriteFile(name string, b []byte, p os.FileMode) error {
	return afero.WriteFile(m.Fs, filepath.Clean(name), b, p)
}
func (m Mem) Stat(name string) (fs.FileInfo, error) { return m.Fs.Stat(filepath.Clean(name)) }
func (m Mem) Rename(a, b string) error              { return m.Fs.Rename(a, b) }
func (m Mem) MkdirAll(path string, p os.FileMode) error {
	return m.Fs.MkdirAll(filepath.Clean(path), p)
}
func (m Mem) WalkDir(root string, fn fs.WalkDirFunc) error {
	root = filepath.Clean(root)
	return afero.Walk(m.Fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		de := memDirEntry{info}
		return fn(p, de, nil)
	})
}

type memDirEntry struct{ os.FileInfo }

func (d memDirEntry) Type() fs.FileMode          { return d.Mode().Type() }
func (d memDirEntry) Info() (fs.FileInfo, error) { return d.FileInfo, nil }

func (Mem) Join(elem ...string) string { return filepath.Join(elem...) }
func (Mem) Base(name string) string    { return filepath.Base(name) }
func (Mem) Dir(name string) string     { return filepath.Dir(name) }
func (Mem) Ext(name string) string     { return filepath.Ext(name) }
func (Mem) Clean(name string) string   { return filepath.Clean(name) }

// ---------- High-level façade used by tasks ----------

type Ops struct {
	FS FS

	// Now is swapped in tests to pin safe-move timestamps.
	Now func() time.Time
}

func NewOps(fs FS) Ops { return Ops{FS: fs, Now: time.Now} }

type FileInfo struct {
	AbsolutePath string
	BaseName     string
	Extension    string
	MIMEType     string
	SizeBytes    int64
}

// Inventory walks an input directory and returns basic file metadata.
// Skips the pre-conversion archive and dot-directories.
func (o Ops) Inventory(root string) ([]FileInfo, error) {
	var out []FileInfo
	err := o.FS.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == PreConversionDirectoryName || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		ext := strings.ToLower(filepath.Ext(p))
		base := strings.TrimSuffix(filepath.Base(p), ext)

		m := mime.TypeByExtension(ext)
		if m == "" {
			switch ext {
			case ".pdf":
				m = "application/pdf"
			case ".docx":
				m = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
			case ".txt", ".md", ".json":
				m = "text/plain; charset=utf-8"
			default:
				m = "application/octet-stream"
			}
		}
		out = append(out, FileInfo{
			AbsolutePath: p,
			BaseName:     base,
			Extension:    ext,
			MIMEType:     m,
			SizeBytes:    info.Size(),
		})
		return nil
	})
	return out, err
}

func (o Ops) EnsureDir(path string) error    { return o.FS.MkdirAll(filepath.Dir(path), 0o755) }
func (o Ops) MoveFile(from, to string) error { return o.FS.Rename(from, to) }
func (o Ops) FileExists(p string) bool       { _, err := o.FS.Stat(p); return err == nil }

// SafeMove moves a file into a directory without clobbering: a name
// collision gets a timestamp suffix before the extension. Returns the final
// destination path.
func (o Ops) SafeMove(from string, toDirectory string) (string, error) {
	if err := o.FS.MkdirAll(toDirectory, 0o755); err != nil {
		return "", err
	}
	base := o.FS.Base(from)
	destination := o.FS.Join(toDirectory, base)
	if o.FileExists(destination) {
		ext := o.FS.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		stamp := o.now().Format(safeMoveTimestampLayout)
		destination = o.FS.Join(toDirectory, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	}
	if err := o.FS.Rename(from, destination); err != nil {
		return "", err
	}
	return destination, nil
}

// HashFile returns the hex sha256 of a file's contents.
func (o Ops) HashFile(path string) (string, error) {
	data, err := o.FS.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (o Ops) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
