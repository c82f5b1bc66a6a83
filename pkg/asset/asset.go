// Package asset is the import pipeline: it reads a file, detects its format,
// runs the matching importer and assembles the result.
package asset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rigport/pkg/collada"
	"github.com/Faultbox/rigport/pkg/encoding"
	"github.com/Faultbox/rigport/pkg/glb"
	"github.com/Faultbox/rigport/pkg/gltf"
	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/scan"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// Format identifies an input file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatGLB
	FormatCOLLADA
)

func (f Format) String() string {
	switch f {
	case FormatGLB:
		return "glb"
	case FormatCOLLADA:
		return "collada"
	default:
		return "unknown"
	}
}

// Detect guesses the format from the leading bytes of data.
func Detect(data []byte) Format {
	if glb.IsGLB(data) {
		return FormatGLB
	}
	text, err := encoding.ToUTF8(data)
	if err != nil {
		return FormatUnknown
	}
	if isMarkup(text) {
		return FormatCOLLADA
	}
	return FormatUnknown
}

func isMarkup(text []byte) bool {
	i := 0
	for i < len(text) && scan.IsSpace(text[i]) {
		i++
	}
	return i < len(text) && text[i] == '<'
}

// Options configures an Importer.
type Options struct {
	// TimeEpsilon is the key time merge tolerance. Zero selects
	// gltf.DefaultEpsilon.
	TimeEpsilon float32
	// Logger receives progress messages. Nil disables logging.
	Logger *zap.Logger
	// CacheModels keeps assembled models by path. Cached models are shared
	// between callers and must not be modified.
	CacheModels bool
}

// Importer turns asset files into skeletal models. It is safe for concurrent
// use; each import works on its own buffers.
type Importer struct {
	opts  Options
	log   *zap.Logger
	cache *Cache
}

// NewImporter creates an importer.
func NewImporter(opts Options) *Importer {
	im := &Importer{opts: opts, log: opts.Logger}
	if im.log == nil {
		im.log = zap.NewNop()
	}
	if opts.CacheModels {
		im.cache = NewCache()
	}
	return im
}

// Cache returns the model cache, or nil when caching is disabled.
func (im *Importer) Cache() *Cache {
	return im.cache
}

// ImportFile reads the whole file at path and imports it.
func (im *Importer) ImportFile(path string) (*skeletal.Model, error) {
	if im.cache != nil {
		if m, ok := im.cache.Get(path); ok {
			im.log.Debug("model cache hit", zap.String("path", path))
			return m, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]

	m, err := im.Import(name, data)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	if im.cache != nil {
		im.cache.Set(path, m)
	}
	return m, nil
}

// Import detects the format of data, runs the importer and assembles the
// model. No model is returned on error.
func (im *Importer) Import(name string, data []byte) (*skeletal.Model, error) {
	start := time.Now()

	if isEmpty(data) {
		return nil, importerr.At(importerr.ErrUnexpectedEndOfInput, 0, "empty file")
	}

	var parts skeletal.Parts
	var format Format
	if glb.IsGLB(data) {
		format = FormatGLB
		var err error
		if parts, err = gltf.Parse(data, name, gltf.Options{TimeEpsilon: im.opts.TimeEpsilon}); err != nil {
			return nil, err
		}
	} else {
		text, err := encoding.ToUTF8(data)
		if err != nil {
			return nil, err
		}
		if !isMarkup(text) {
			return nil, importerr.At(importerr.ErrMalformedSyntax, 0, "unrecognized file format")
		}
		format = FormatCOLLADA
		doc, err := markup.Parse(text)
		if err != nil {
			return nil, err
		}
		if parts, err = collada.Import(doc, name); err != nil {
			return nil, err
		}
	}

	m, err := skeletal.Assemble(parts)
	if err != nil {
		return nil, fmt.Errorf("assembling: %w", err)
	}

	im.log.Info("imported model",
		zap.String("name", name),
		zap.Stringer("format", format),
		zap.Int("bytes", len(data)),
		zap.Int("joints", len(m.Joints)),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("triangles", m.TriangleCount()),
		zap.Int("clips", len(m.Clips)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

// Result is the outcome of importing one file of a batch.
type Result struct {
	Path  string
	Model *skeletal.Model
	Err   error
}

// ImportBatch imports paths with up to workers files in flight. A failed file
// is reported in its Result and does not stop the batch; cancelling ctx stops
// scheduling further files, which then carry ctx's error. Results are in the
// order of paths.
func (im *Importer) ImportBatch(ctx context.Context, paths []string, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		results[i].Path = path
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			m, err := im.ImportFile(path)
			if err != nil {
				im.log.Warn("import failed", zap.String("path", path), zap.Error(err))
			}
			results[i].Model, results[i].Err = m, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// isEmpty reports whether data holds nothing but whitespace.
func isEmpty(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
