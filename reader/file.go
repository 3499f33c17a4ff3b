package reader

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/compress"
	"github.com/vegasq/colframe/internal/logging"
)

// FileColumn is the column ReadFile adds to record the source path of every
// row when a glob pattern is read.
const FileColumn = "_file"

// maxGlobFiles bounds how many files one pattern may expand to
const maxGlobFiles = 1000

// IsGlob reports whether path contains glob metacharacters
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// ReadFile reads path into a frame. The format and compression come from
// the file extensions unless opts.Format is set.
//
// A glob pattern reads every match in lexical order, stacks the frames
// vertically (promoting dtypes to their supertype) and appends a String
// column named "_file" holding each row's source path. A plain path never
// gets that column.
func ReadFile(path string, opts Options) (*frame.DataFrame, error) {
	if !IsGlob(path) {
		return readOne(path, opts)
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, frame.WrapError(err, frame.KindArgument, "read file", "invalid glob pattern %q", path)
	}
	if len(matches) == 0 {
		return nil, frame.NewError(frame.KindCodec, "read file", "no files match pattern: %s", path)
	}
	if len(matches) > maxGlobFiles {
		return nil, frame.NewError(frame.KindArgument, "read file",
			"glob pattern matched too many files (%d), maximum is %d", len(matches), maxGlobFiles)
	}

	frames := make([]*frame.DataFrame, len(matches))
	for i, m := range matches {
		df, err := readOne(m, opts)
		if err != nil {
			return nil, err
		}
		if df.Has(FileColumn) {
			return nil, frame.NewError(frame.KindSchema, "read file", "%s already has a %q column", m, FileColumn)
		}
		tagged, err := df.HStack(frame.Repeat(FileColumn, frame.String, frame.Str(m), df.Height()))
		if err != nil {
			return nil, err
		}
		frames[i] = tagged
	}
	logging.Named("reader").Debug("read glob",
		zap.String("pattern", path),
		zap.Int("files", len(matches)))
	return frame.Concat(frames...)
}

func readOne(path string, opts Options) (*frame.DataFrame, error) {
	format, alg, err := resolveFormat(path, opts)
	if err != nil {
		return nil, err
	}
	rd, err := New(format, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, codecErr(err, "read file", "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	if alg == compress.None {
		return rd.Read(f)
	}
	zr, err := compress.NewReader(f, alg)
	if err != nil {
		return nil, codecErr(err, "read file", "%s", path)
	}
	defer func() { _ = zr.Close() }()
	return rd.Read(zr)
}

func resolveFormat(path string, opts Options) (Format, compress.Algorithm, error) {
	format, alg, err := DetectFormat(path)
	if opts.Format != "" {
		return opts.Format, alg, nil
	}
	return format, alg, err
}

// FileSource feeds a file or glob into frame.Scan. Uncompressed Parquet
// files answer Schema from the footer alone; every other input is loaded
// once and the decoded frame is kept for the following Load.
type FileSource struct {
	path string
	opts Options

	mu     sync.Mutex
	loaded *frame.DataFrame
}

// NewFileSource returns a source reading path with opts
func NewFileSource(path string, opts Options) *FileSource {
	return &FileSource{path: path, opts: opts}
}

// Scan is shorthand for frame.Scan(NewFileSource(path, opts))
func Scan(path string, opts Options) *frame.LazyFrame {
	return frame.Scan(NewFileSource(path, opts))
}

// Schema implements frame.Source
func (s *FileSource) Schema() (frame.Schema, error) {
	if !IsGlob(s.path) {
		if format, alg, err := resolveFormat(s.path, s.opts); err == nil && format == Parquet && alg == compress.None {
			return parquetFileSchema(s.path)
		}
	}
	df, err := s.load(true)
	if err != nil {
		return nil, err
	}
	return df.Schema(), nil
}

// Load implements frame.Source
func (s *FileSource) Load() (*frame.DataFrame, error) {
	return s.load(false)
}

func (s *FileSource) load(keep bool) (*frame.DataFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		df := s.loaded
		if !keep {
			s.loaded = nil
		}
		return df, nil
	}
	df, err := ReadFile(s.path, s.opts)
	if err != nil {
		return nil, err
	}
	if keep {
		s.loaded = df
	}
	return df, nil
}

// String implements frame.Source
func (s *FileSource) String() string {
	return s.path
}

func parquetFileSchema(path string) (frame.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, codecErr(err, "read file", "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return nil, codecErr(err, "read file", "failed to stat %s", path)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, codecErr(err, "read parquet", "failed to open %s", path)
	}
	return parquetSchema(pf)
}
