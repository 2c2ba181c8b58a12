// Package publish writes a rendered catalog document to its destination:
// a writer, a local file, or an S3-compatible bucket.
package publish

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
)

// Publisher delivers a rendered catalog document.
type Publisher interface {
	// Publish writes doc and returns where it went.
	Publish(ctx context.Context, doc []byte) (string, error)
}

// Writer publishes to an io.Writer such as stdout.
type Writer struct {
	W    io.Writer
	Name string
}

// Publish implements Publisher.
func (p *Writer) Publish(_ context.Context, doc []byte) (string, error) {
	if _, err := p.W.Write(doc); err != nil {
		return "", errors.NewIOError("write", p.Name, err)
	}
	return p.Name, nil
}

// File publishes to a local path. The document is written to a temporary
// file in the same directory and renamed into place, so readers never
// observe a partial catalog.
type File struct {
	Path string
}

// Publish implements Publisher.
func (p *File) Publish(_ context.Context, doc []byte) (string, error) {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return "", errors.NewIOError("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".data-*.json")
	if err != nil {
		return "", errors.NewIOError("create", dir, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return "", errors.NewIOError("write", tmp.Name(), err)
	}
	if err := tmp.Chmod(constants.FilePermissions); err != nil {
		_ = tmp.Close()
		return "", errors.NewIOError("chmod", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.NewIOError("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.Path); err != nil {
		return "", errors.NewIOError("rename", p.Path, err)
	}
	return p.Path, nil
}

// Target is a parsed publish destination.
type Target struct {
	Kind   string // "stdout", "file" or "s3"
	Path   string // file path, or object key for s3
	Bucket string
}

// ParseTarget parses "-" (stdout), "s3://bucket/key" or a file path.
// An s3 target without a key publishes to data.json.
func ParseTarget(raw string) (Target, error) {
	switch {
	case raw == "" || raw == "-":
		return Target{Kind: "stdout"}, nil
	case strings.HasPrefix(raw, "s3://"):
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Target{}, errors.NewConfigError("publish", "invalid s3 target "+raw, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" || strings.HasSuffix(key, "/") {
			key += "data.json"
		}
		return Target{Kind: "s3", Bucket: u.Host, Path: key}, nil
	default:
		return Target{Kind: "file", Path: raw}, nil
	}
}
