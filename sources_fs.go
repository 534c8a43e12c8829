package leaf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemSource reads template bodies from files under a base
// directory, grounded on the teacher's LocalFilesystemLoader
// (template_loader.go), generalized from the teacher's io.Reader-returning
// Get/Abs pair to the module-wide Source.Find(ctx, key) contract.
type FilesystemSource struct {
	baseDir string
	suffix  string
}

// NewFilesystemSource returns a Source resolving "name"/"name.suffix"
// (suffix may be empty) under baseDir, which must already exist and be a
// directory.
func NewFilesystemSource(baseDir, suffix string) (*FilesystemSource, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, sourceIOError(baseDir, err)
	}
	if !fi.IsDir() {
		return nil, sourceIOError(baseDir, errNotADirectory(baseDir))
	}
	return &FilesystemSource{baseDir: abs, suffix: suffix}, nil
}

func (fs *FilesystemSource) Find(ctx context.Context, key string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	rel := key
	if fs.suffix != "" && !strings.HasSuffix(rel, fs.suffix) {
		rel += fs.suffix
	}
	path := filepath.Join(fs.baseDir, rel)
	if !strings.HasPrefix(path, fs.baseDir) {
		return "", nil, illegalSourceKey(key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, sourceNotFound(key)
		}
		return "", nil, sourceIOError(key, err)
	}
	return path, data, nil
}

type notADirectoryError string

func (e notADirectoryError) Error() string { return string(e) + " is not a directory" }

func errNotADirectory(path string) error { return notADirectoryError(path) }

// MemorySource is a fixed, in-process map of name -> template body, used
// for tests and for small embedded template sets that don't warrant a
// filesystem or database backing.
type MemorySource struct {
	prefix string
	bodies map[string]string
}

// NewMemorySource returns a Source backed by bodies. prefix does not select
// anything; Find only uses it to label the origin it returns
// ("prefix:name"). Registering under a prefix is done with WithPrefix.
func NewMemorySource(prefix string, bodies map[string]string) *MemorySource {
	return &MemorySource{prefix: prefix, bodies: bodies}
}

func (m *MemorySource) Find(ctx context.Context, key string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	body, ok := m.bodies[key]
	if !ok {
		return "", nil, sourceNotFound(key)
	}
	return m.prefix + ":" + key, []byte(body), nil
}
