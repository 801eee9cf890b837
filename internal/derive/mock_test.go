package derive

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// runnerCall records one external tool invocation.
type runnerCall struct {
	name string
	args []string
}

// fakeRunner is a commandRunner for tests. It records every call and
// delegates to runFunc.
type fakeRunner struct {
	runFunc      func(ctx context.Context, name string, args []string) (runResult, error)
	lookPathFunc func(name string) (string, error)

	mu    sync.Mutex
	calls []runnerCall
}

func (r *fakeRunner) Run(ctx context.Context, name string, args []string) (runResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runnerCall{name: name, args: append([]string(nil), args...)})
	r.mu.Unlock()
	if r.runFunc != nil {
		return r.runFunc(ctx, name, args)
	}
	return runResult{}, nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.lookPathFunc != nil {
		return r.lookPathFunc(name)
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRunner) call(i int) runnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

// fakeProber is a Prober for orchestrator tests.
type fakeProber struct {
	durationFunc  func(ctx context.Context, path string) (float64, error)
	availableFunc func() bool
}

func (p *fakeProber) Duration(ctx context.Context, path string) (float64, error) {
	if p.durationFunc != nil {
		return p.durationFunc(ctx, path)
	}
	return 60, nil
}

func (p *fakeProber) Available() bool {
	if p.availableFunc != nil {
		return p.availableFunc()
	}
	return true
}

// fakeExtractor is a FrameExtractor that writes a real temp file, since
// the orchestrator opens and removes the still it returns.
type fakeExtractor struct {
	extractErr error

	mu            sync.Mutex
	extractCalls  int
	lastSeconds   float64
	availableFunc func() bool
}

func (e *fakeExtractor) Extract(_ context.Context, _ string, seconds float64, _ model.ThumbnailSizeSpec) (string, error) {
	e.mu.Lock()
	e.extractCalls++
	e.lastSeconds = seconds
	e.mu.Unlock()
	if e.extractErr != nil {
		return "", e.extractErr
	}
	f, err := os.CreateTemp("", "fake-frame-*.jpg")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString("frame"); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (e *fakeExtractor) Available() bool {
	if e.availableFunc != nil {
		return e.availableFunc()
	}
	return true
}

// fakeResizer is a Resizer for fanout and orchestrator tests.
type fakeResizer struct {
	resizeFunc func(ctx context.Context, stillPath, outputPath string, spec model.ThumbnailSizeSpec) error
}

func (r *fakeResizer) Resize(ctx context.Context, stillPath, outputPath string, spec model.ThumbnailSizeSpec) error {
	if r.resizeFunc != nil {
		return r.resizeFunc(ctx, stillPath, outputPath, spec)
	}
	return os.WriteFile(outputPath, []byte("thumb-"+spec.Name), 0644)
}

// fakeConverter is a Converter for orchestrator tests.
type fakeConverter struct {
	convertFunc func(ctx context.Context, p Profile, sourcePath, outputPath string) error
}

func (c *fakeConverter) Convert(ctx context.Context, p Profile, sourcePath, outputPath string) error {
	if c.convertFunc != nil {
		return c.convertFunc(ctx, p, sourcePath, outputPath)
	}
	return os.WriteFile(outputPath, []byte("rendition"), 0644)
}

// memStore is an in-memory ArtifactStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, relativePath string, r io.Reader, _ int64) (model.DerivativeArtifact, error) {
	if s.putErr != nil {
		return model.DerivativeArtifact{}, s.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return model.DerivativeArtifact{}, err
	}
	s.mu.Lock()
	s.objects[relativePath] = buf.Bytes()
	s.mu.Unlock()
	return model.DerivativeArtifact{
		RelativePath: relativePath,
		ByteSize:     int64(buf.Len()),
		CreatedAt:    time.Now(),
	}, nil
}

func (s *memStore) Exists(_ context.Context, relativePath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[relativePath]
	return ok, nil
}

func (s *memStore) Size(_ context.Context, relativePath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[relativePath]
	if !ok {
		return 0, repository.ErrArtifactNotFound
	}
	return int64(len(b)), nil
}

// fakeCancelSignal cancels once a fixed number of checks have happened.
type fakeCancelSignal struct {
	cancelAfter int

	mu     sync.Mutex
	checks int
}

func (s *fakeCancelSignal) Cancelled(context.Context, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.checks > s.cancelAfter, nil
}

var _ Prober = (*fakeProber)(nil)
var _ FrameExtractor = (*fakeExtractor)(nil)
var _ Resizer = (*fakeResizer)(nil)
var _ Converter = (*fakeConverter)(nil)
var _ repository.ArtifactStore = (*memStore)(nil)
var _ repository.CancelSignal = (*fakeCancelSignal)(nil)
