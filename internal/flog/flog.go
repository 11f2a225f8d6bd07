// Package flog is a leveled, channel-buffered logger shared by every
// component in the link layer. It exists so the accept-demux hot path
// never blocks on stdout: the caller formats the line, a single drain
// goroutine writes it, and a saturated channel drops the line instead of
// stalling the caller.
package flog

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Level int

const None Level = -1
const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

var (
	minLevel = Info
	logCh    = make(chan string, 1024)
	dropped  atomic.Uint64
)

var drainOnce sync.Once

// Dropped returns the number of log messages dropped due to channel full.
func Dropped() uint64 { return dropped.Load() }

var levelStrings = [...]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
	Fatal: "FATAL",
}

// SetLevel sets the minimum level that reaches the log, and starts the
// drain goroutine the first time logging is enabled. Pass int(None) to
// silence the logger entirely (used by tests).
func SetLevel(l int) {
	minLevel = Level(l)
	if l != int(None) {
		drainOnce.Do(func() {
			go func() {
				for msg := range logCh {
					fmt.Fprint(os.Stdout, msg)
				}
			}()
		})
	}
}

func logf(level Level, format string, args ...any) {
	if level < minLevel || minLevel == None {
		return
	}

	// Check channel capacity before formatting to avoid wasted allocations.
	if len(logCh) == cap(logCh) {
		dropped.Add(1)
		return
	}

	var levelStr string
	if int(level) < len(levelStrings) {
		levelStr = levelStrings[level]
	} else {
		levelStr = "UNKNOWN"
	}

	now := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s\n", now, levelStr, fmt.Sprintf(format, args...))

	select {
	case logCh <- line:
	default:
		dropped.Add(1)
	}
}

func (l Level) String() string {
	if int(l) >= 0 && int(l) < len(levelStrings) {
		return levelStrings[l]
	}
	if l == None {
		return "None"
	}
	return "UNKNOWN"
}

func Debugf(format string, args ...any) { logf(Debug, format, args...) }
func Infof(format string, args ...any)  { logf(Info, format, args...) }
func Warnf(format string, args ...any)  { logf(Warn, format, args...) }
func Errorf(format string, args ...any) { logf(Error, format, args...) }
func Fatalf(format string, args ...any) {
	logf(Fatal, format, args...)
	time.Sleep(10 * time.Millisecond) // let the drain goroutine flush
	os.Exit(1)
}

// Close shuts down the drain goroutine. Only safe once no further log
// calls will be made.
func Close() { close(logCh) }
