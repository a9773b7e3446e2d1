package journal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/meridianfx/meridian/pkg/common"
)

const recorderComponentName = "journal.recorder"

// Recorder captures the live tick stream into one journal file per
// symbol, for deterministic replay later. Subscribe its OnTick to the
// tick event.
type Recorder struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir, files: make(map[string]*os.File)}
}

func FileName(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+".tickj")
}

func (r *Recorder) OnTick(_ context.Context, tick common.Tick) {
	if err := r.Append(tick); err != nil {
		slog.Warn("unable to journal tick",
			"component", recorderComponentName, "symbol", tick.Symbol, "error", err)
	}
}

func (r *Recorder) Append(tick common.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[tick.Symbol]
	if !ok {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return fmt.Errorf("unable to create journal directory: %w", err)
		}
		var err error
		file, err = os.OpenFile(FileName(r.dir, tick.Symbol), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("unable to open journal: %w", err)
		}
		r.files[tick.Symbol] = file
	}

	record := FromTick(tick)
	buffer := unsafe.Slice((*byte)(unsafe.Pointer(&record)), recordSize) // mirror of the reader's cast

	if _, err := file.Write(buffer); err != nil {
		return fmt.Errorf("unable to append journal record: %w", err)
	}
	return nil
}

func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, file := range r.files {
		_ = file.Close()
	}
	r.files = make(map[string]*os.File)
}
