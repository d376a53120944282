package chat

import (
	"io"
	"log"
	"os"
	"sync"
)

var logWriter io.Writer = os.Stderr
var logWriterMu sync.RWMutex

// A LogWriter writes to stderr and to a log file.
type LogWriter struct {
	f *os.File
}

func (lw *LogWriter) Write(p []byte) (n int, err error) {
	n, err = os.Stderr.Write(p)
	if err != nil {
		return
	}

	return lw.f.Write(p)
}

func (lw *LogWriter) Close() error { return lw.f.Close() }

// InitLog redirects the standard logger and all participant loggers
// to stderr and latest.log next to the executable.
func InitLog() (*LogWriter, error) {
	f, err := os.OpenFile(Path("latest.log"), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}

	lw := &LogWriter{f}
	log.SetOutput(lw)

	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	logWriter = lw
	return lw, nil
}

// newLogger returns a logger for a named component.
func newLogger(name string) *log.Logger {
	logWriterMu.RLock()
	defer logWriterMu.RUnlock()

	return log.New(logWriter, "{←|⇶} ["+name+"] ", log.LstdFlags|log.Lmsgprefix)
}
