package scan

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrDirNotFound = errors.New("directory not found in image filesystem")

func NewErrDirNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrDirNotFound, name)
}

// FindDir reads a tar stream of an image filesystem and returns the path of
// the first directory whose base name is name. Scan is IN ONE PASS; the
// stream is consumed only until the first hit.
//
// # Args
//
// - ctx: context.Context
//
// - stream: tar stream of a (flattened) image filesystem
//
// - name: base name of the directory to find
//
// # Returns
//
// - string: absolute path of the found directory, like "/opt/ml/code/xgboost"
//
// - error: ErrDirNotFound when no directory in the stream has the name.
func FindDir(ctx context.Context, stream io.Reader, name string) (string, error) {
	found, err := FindDirs(ctx, stream, name, 1)
	if err != nil {
		return "", err
	}
	return found[0], nil
}

// FindDirs is FindDir finding up to limit hits (limit <= 0 means all).
func FindDirs(ctx context.Context, stream io.Reader, name string, limit int) ([]string, error) {
	name = strings.Trim(name, "/")
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("directory name should be a single path element: %s", name)
	}

	found := []string{}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if hdr.Typeflag != tar.TypeDir {
			continue
		}

		// tarballs vary in how they spell directory entries:
		// "./opt/x/", "opt/x", "/opt/x/". Normalize before matching.
		p := path.Clean("/" + strings.TrimPrefix(hdr.Name, "."))
		if path.Base(p) == name {
			found = append(found, p)
			if 0 < limit && limit <= len(found) {
				break
			}
		}
	}

	if len(found) == 0 {
		return nil, NewErrDirNotFound(name)
	}
	return found, nil
}
