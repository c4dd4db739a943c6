// Package transcript records everything a run prints so dry runs leave a
// reviewable file behind.
//
// A Capture hands out stdout/stderr writers that echo to the real streams
// and append each fragment, in order, to one shared buffer. Release flushes
// the buffer to disk exactly once.
package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Target is the parsed --out option.
type Target struct {
	Enabled bool
	Path    string
}

// FileIOError reports a failed transcript write.
type FileIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("transcript %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileIOError) Unwrap() error { return e.Err }

// DefaultPath returns <dir>/pr-<digits>.txt, keeping only the digits of id.
func DefaultPath(dir, id string) string {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return filepath.Join(dir, "pr-"+b.String()+".txt")
}

// Capture is an active (or disabled) transcript.
type Capture struct {
	path   string
	stdout io.Writer
	stderr io.Writer

	mu        sync.Mutex
	fragments []string
	active    bool

	once       sync.Once
	releaseErr error
}

// Begin starts a capture. When t is disabled the returned Capture passes
// writes straight through and Release does nothing.
func Begin(t Target, outputDir, id string, stdout, stderr io.Writer) *Capture {
	c := &Capture{stdout: stdout, stderr: stderr}
	if !t.Enabled {
		return c
	}
	c.active = true
	c.path = t.Path
	if c.path == "" {
		c.path = DefaultPath(outputDir, id)
	}
	return c
}

// Active reports whether writes are being recorded.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Path is the destination file, empty when disabled.
func (c *Capture) Path() string { return c.path }

// Stdout returns the writer standing in for standard output.
func (c *Capture) Stdout() io.Writer { return &sink{c: c, w: c.stdout} }

// Stderr returns the writer standing in for standard error.
func (c *Capture) Stderr() io.Writer { return &sink{c: c, w: c.stderr} }

// Fragments returns a copy of what has been recorded so far.
func (c *Capture) Fragments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.fragments...)
}

func (c *Capture) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.fragments = append(c.fragments, s)
	}
}

// Release stops recording and writes the transcript. Only the first call
// does any work; later calls return the first result.
func (c *Capture) Release() error {
	c.once.Do(func() {
		c.mu.Lock()
		wasActive := c.active
		c.active = false
		content := strings.Join(c.fragments, "")
		c.mu.Unlock()

		if !wasActive {
			return
		}
		c.releaseErr = c.flush(content)
	})
	return c.releaseErr
}

func (c *Capture) flush(content string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return &FileIOError{Op: "mkdir", Path: filepath.Dir(c.path), Err: err}
	}
	if err := os.WriteFile(c.path, []byte(content), 0o644); err != nil {
		return &FileIOError{Op: "write", Path: c.path, Err: err}
	}
	fmt.Fprintf(c.stdout, "Transcript saved to %s\n", relativePath(c.path))
	return nil
}

func relativePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil {
		return path
	}
	return rel
}

// sink echoes to the real stream, then records. Recording cannot fail.
type sink struct {
	c *Capture
	w io.Writer
}

func (s *sink) Write(p []byte) (int, error) {
	s.c.record(string(p))
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *sink) WriteString(str string) (int, error) {
	s.c.record(str)
	if s.w == nil {
		return len(str), nil
	}
	return io.WriteString(s.w, str)
}
