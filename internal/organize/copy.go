// Package organize lays out run outputs on disk: the accepted/rejected
// partition and the prepared per-kind directories.
package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/forPelevin/syncsieve/internal/types"
)

// CopyResult records one copy or conversion. Err is nil on success.
type CopyResult struct {
	Kind types.ArtifactKind `json:"kind"`
	Src  string             `json:"src"`
	Dst  string             `json:"dst"`
	Err  error              `json:"-"`
}

// CopyError is a failed copy or conversion. It wraps types.ErrIO.
type CopyError struct {
	Src, Dst string
	Err      error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() []error { return []error{types.ErrIO, e.Err} }

// CopyFile copies src to dst, creating parent directories. Mode and
// modification time are preserved and an existing dst is replaced
// atomically.
func CopyFile(src, dst string) (err error) {
	defer func() {
		if err != nil {
			err = &CopyError{Src: src, Dst: dst, Err: err}
		}
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("source is a directory")
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, fi.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmpPath, fi.ModTime(), fi.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

// CopyTree copies every regular file under src into dst, keeping relative
// paths. Failures are reported per file.
func CopyTree(src, dst string, kind types.ArtifactKind) []CopyResult {
	var out []CopyResult
	walkErr := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			out = append(out, CopyResult{Kind: kind, Src: path, Dst: dst, Err: &CopyError{Src: path, Dst: dst, Err: err}})
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		out = append(out, CopyResult{Kind: kind, Src: path, Dst: target, Err: CopyFile(path, target)})
		return nil
	})
	if walkErr != nil {
		out = append(out, CopyResult{Kind: kind, Src: src, Dst: dst, Err: &CopyError{Src: src, Dst: dst, Err: walkErr}})
	}
	return out
}

// Failed returns the results that carry an error.
func Failed(rs []CopyResult) []CopyResult {
	var out []CopyResult
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
