// Package preview renders single document pages to images. Renders are grouped by
// document so that every render of a document can be stopped at once.
package preview

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// Renderer turns one zero-based page of the PDF at path into a JPEG image.
type Renderer interface {
	Render(ctx context.Context, path string, page int) ([]byte, error)
}

// PdftoppmRenderer renders pages with poppler's pdftoppm. Cancelling the context kills
// the process mid-page.
type PdftoppmRenderer struct {
	Bin string
	DPI int
}

func (r PdftoppmRenderer) Render(ctx context.Context, path string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "pdfdiff-preview-")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.bin(), r.args(path, page, prefix)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w: %s", page, err, out)
	}

	img, err := os.ReadFile(prefix + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}
	return img, nil
}

func (r PdftoppmRenderer) bin() string {
	if r.Bin == "" {
		return "pdftoppm"
	}
	return r.Bin
}

func (r PdftoppmRenderer) args(path string, page int, prefix string) []string {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 96
	}
	n := strconv.Itoa(page + 1)
	return []string{"-jpeg", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", path, prefix}
}

// Manager tracks in-flight renders per document.
type Manager struct {
	renderer Renderer

	mu       sync.Mutex
	next     uint64
	inflight map[string]map[uint64]context.CancelFunc
}

func NewManager(r Renderer) *Manager {
	return &Manager{
		renderer: r,
		inflight: make(map[string]map[uint64]context.CancelFunc),
	}
}

// Render renders page of the document docID stored at path. The render stops when ctx
// is done or when Cancel(docID) is called.
func (m *Manager) Render(ctx context.Context, docID, path string, page int) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	id := m.register(docID, cancel)
	defer func() {
		m.unregister(docID, id)
		cancel()
	}()
	return m.renderer.Render(ctx, path, page)
}

// Cancel stops every in-flight render of docID and returns how many were stopped.
func (m *Manager) Cancel(docID string) int {
	m.mu.Lock()
	renders := m.inflight[docID]
	delete(m.inflight, docID)
	m.mu.Unlock()

	for _, cancel := range renders {
		cancel()
	}
	if len(renders) > 0 {
		log.Printf("Cancelled %d preview renders of document %s", len(renders), docID)
	}
	return len(renders)
}

// InFlight returns the number of renders running for docID.
func (m *Manager) InFlight(docID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight[docID])
}

func (m *Manager) register(docID string, cancel context.CancelFunc) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	if m.inflight[docID] == nil {
		m.inflight[docID] = make(map[uint64]context.CancelFunc)
	}
	m.inflight[docID][m.next] = cancel
	return m.next
}

func (m *Manager) unregister(docID string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	renders := m.inflight[docID]
	delete(renders, id)
	if len(renders) == 0 {
		delete(m.inflight, docID)
	}
}
