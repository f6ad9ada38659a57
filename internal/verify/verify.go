// Package verify confirms a recovered password by opening the archive with it.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// ErrUnsupported is returned for containers that cannot be checked locally
var ErrUnsupported = errors.New("password verification not supported for this container")

// maxVerifyBytes caps how much of one entry is decompressed
const maxVerifyBytes = 64 << 20

// Verifier checks passwords for a container file.
type Verifier interface {
	Verify(ctx context.Context, path string, container models.ContainerType, password string) (bool, error)
}

// Archive verifies zip, rar and 7z archives in-process.
type Archive struct{}

// Verify reports whether password decrypts the first encrypted entry of the
// archive. A wrong password is (false, nil); errors mean the check itself
// could not run.
func (Archive) Verify(ctx context.Context, path string, container models.ContainerType, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch container {
	case models.ContainerZip:
		return verifyZip(path, password)
	case models.ContainerRar:
		return verifyRar(path, password), nil
	case models.Container7z:
		return verify7z(path, password), nil
	}
	return false, ErrUnsupported
}

func verifyZip(path, password string) (bool, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !f.IsEncrypted() {
			continue
		}
		f.SetPassword(password)
		rc, err := f.Open()
		if err != nil {
			return false, nil
		}
		_, err = io.Copy(io.Discard, io.LimitReader(rc, maxVerifyBytes))
		rc.Close()
		return err == nil, nil
	}
	return false, fmt.Errorf("zip has no encrypted entries")
}

func verifyRar(path, password string) bool {
	rc, err := rardecode.OpenReader(path, password)
	if err != nil {
		return false
	}
	defer rc.Close()

	for {
		hdr, err := rc.Next()
		if err != nil {
			return false
		}
		if hdr.IsDir {
			continue
		}
		_, err = io.Copy(io.Discard, io.LimitReader(rc, maxVerifyBytes))
		return err == nil
	}
}

func verify7z(path, password string) bool {
	r, err := sevenzip.OpenReaderWithPassword(path, password)
	if err != nil {
		return false
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return false
		}
		_, err = io.Copy(io.Discard, io.LimitReader(rc, maxVerifyBytes))
		rc.Close()
		return err == nil
	}
	return false
}
