package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fileSource reads every JPEG/PNG in a directory once, in lexical order,
// standing in for the "external caller" of the pipeline's submit API the
// way the teacher's internal/source/file stands in for a live capture
// interface in tests and demos. It is demo glue, not part of the pipeline
// core.
type fileSource struct {
	paths []string
}

func newFileSource(dir string) (*fileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cmd: read frame directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("cmd: no .jpg/.jpeg/.png files found in %s", dir)
	}
	return &fileSource{paths: paths}, nil
}

func (s *fileSource) Len() int {
	return len(s.paths)
}

func (s *fileSource) Open(i int) (image.Image, error) {
	f, err := os.Open(s.paths[i%len(s.paths)])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
