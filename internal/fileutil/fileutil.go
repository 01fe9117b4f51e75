package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteStream copies r into dst through a sibling temp file that is renamed
// into place, so readers never observe a partially written file.
func WriteStream(dst string, r io.Reader, mode os.FileMode) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return written, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return written, err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return written, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return written, err
	}
	return written, nil
}

// CopyFile copies src to dst with mode 0o644.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = WriteStream(dst, in, 0o644)
	return err
}

// CopyFileVerified copies src to dst and confirms size and SHA256 match.
// dst is removed on mismatch.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcHash := sha256.New()
	written, err := WriteStream(dst, io.TeeReader(in, srcHash), 0o644)
	if err != nil {
		return err
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}

	dstSum, err := fileSum(dst)
	if err != nil {
		return err
	}
	if !bytes.Equal(srcHash.Sum(nil), dstSum) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func fileSum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
