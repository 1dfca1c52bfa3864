package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gzhole/skillguard/internal/redact"
)

// defaultMaxLogBytes is the size at which the log is moved to <path>.1.
const defaultMaxLogBytes = 5 << 20

// Decisions recorded in the audit log.
const (
	DecisionNone        = "NONE"
	DecisionSuggest     = "SUGGEST"
	DecisionWarn        = "WARN"
	DecisionBlock       = "BLOCK"
	DecisionShadowBlock = "SHADOW_BLOCK"
	DecisionChecks      = "CHECKS"
)

type CheckRecord struct {
	Dir     string `json:"dir"`
	Command string `json:"command"`
	OK      *bool  `json:"ok,omitempty"`
}

type AuditEvent struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Session   string        `json:"session"`
	Mode      string        `json:"mode"`
	Decision  string        `json:"decision"`
	Skills    []string      `json:"skills,omitempty"`
	Tool      string        `json:"tool,omitempty"`
	Path      string        `json:"path,omitempty"`
	Message   string        `json:"message,omitempty"`
	Checks    []CheckRecord `json:"checks,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type AuditLogger struct {
	path    string
	file    *os.File
	size    int64
	maxSize int64
	mu      sync.Mutex
}

// New opens path for appending, creating its directory. A file already at
// the size limit is rotated first.
func New(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	l := &AuditLogger{path: path, maxSize: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	if l.size >= l.maxSize {
		if err := l.rotate(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Redact sensitive data before logging
	event.Message = redact.Redact(event.Message)
	event.Path = redact.Redact(event.Path)
	for i := range event.Checks {
		event.Checks[i].Command = redact.Redact(event.Checks[i].Command)
	}
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if l.size+int64(len(data))+1 > l.maxSize && l.size > 0 {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	data = append(data, '\n')
	n, err := l.file.Write(data)
	l.size += int64(n)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Read returns every well-formed record in the log at path. A missing log
// has no records.
func Read(path string) ([]AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
