package scorm

import (
	"sync/atomic"

	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
)

// Progress receives export progress and may cancel the export.
type Progress interface {
	SetNote(note string)
	SetProgress(n int)
	SetMaximum(n int)
	IsCanceled() bool
	Close()
}

type nopProgress struct{}

func (nopProgress) SetNote(string)   {}
func (nopProgress) SetProgress(int)  {}
func (nopProgress) SetMaximum(int)   {}
func (nopProgress) IsCanceled() bool { return false }
func (nopProgress) Close()           {}

// LogProgress reports progress to a logger. Cancel may be called from any
// goroutine.
type LogProgress struct {
	Log *logger.Logger

	max      atomic.Int64
	canceled atomic.Bool
}

func (p *LogProgress) SetNote(note string) { p.Log.Debug("export", "step", note) }
func (p *LogProgress) SetProgress(n int) {
	p.Log.Debug("export progress", "done", n, "of", p.max.Load())
}
func (p *LogProgress) SetMaximum(n int) { p.max.Store(int64(n)) }
func (p *LogProgress) IsCanceled() bool { return p.canceled.Load() }
func (p *LogProgress) Cancel()          { p.canceled.Store(true) }
func (p *LogProgress) Close()           {}
