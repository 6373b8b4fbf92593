package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger writes one JSON object per record into a shared buffer so
// tests can assert on what a fit or simulation reported.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	reg := glm.NewPoissonRegressor(glm.WithLogger(logger))
//	...
//	assert.True(t, logger.ContainsField(log.ConvergedKey, true))
type TestLogger struct {
	sink  *testSink
	min   Level
	attrs map[string]any
}

// testSink is shared by a TestLogger and every child made with With.
type testSink struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (s *testSink) write(line []byte) {
	s.mu.Lock()
	s.buf.Write(line)
	s.buf.WriteByte('\n')
	s.mu.Unlock()
}

func (s *testSink) snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// NewTestLogger returns a logger that drops records below min, and the
// buffer it writes to.
func NewTestLogger(min Level) (*TestLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return &TestLogger{
		sink:  &testSink{buf: buf},
		min:   min,
		attrs: map[string]any{},
	}, buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.emit(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.emit(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.emit(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.emit(LevelError, msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{sink: t.sink, min: t.min, attrs: make(map[string]any, len(t.attrs)+len(fields)/2)}
	for k, v := range t.attrs {
		child.attrs[k] = v
	}
	mergeFields(child.attrs, fields)
	return child
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.min
}

func (t *TestLogger) emit(level Level, msg string, fields []any) {
	if level < t.min {
		return
	}
	rec := make(map[string]any, len(t.attrs)+len(fields)/2+2)
	for k, v := range t.attrs {
		rec[k] = v
	}
	mergeFields(rec, fields)
	rec["level"] = level.String()
	rec["message"] = msg

	line, err := json.Marshal(rec)
	if err != nil {
		// unencodable field values (NaN, channels) still leave a record
		line, _ = json.Marshal(map[string]any{
			"level":   level.String(),
			"message": msg,
			"marshal": err.Error(),
		})
	}
	t.sink.write(line)
}

// mergeFields copies key/value pairs into dst. Errors are stored as their
// message; a dangling key is ignored.
func mergeFields(dst map[string]any, fields []any) {
	for i := 1; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i-1])
		switch v := fields[i].(type) {
		case error:
			dst[key] = v.Error()
		default:
			dst[key] = v
		}
	}
}

// GetLogEntries decodes every captured record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, line := range strings.Split(t.sink.snapshot(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec := map[string]interface{}{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode log line %q: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.sink.snapshot(), message)
}

// ContainsField reports whether some record has key equal to value.
// Numbers come back from JSON as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	return t.count(func(rec map[string]interface{}) bool {
		got, ok := rec[key]
		return ok && got == value
	}) > 0
}

func (t *TestLogger) CountLevel(level Level) int {
	name := level.String()
	return t.count(func(rec map[string]interface{}) bool { return rec["level"] == name })
}

func (t *TestLogger) count(match func(map[string]interface{}) bool) int {
	recs, err := t.GetLogEntries()
	if err != nil {
		return 0
	}
	n := 0
	for _, rec := range recs {
		if match(rec) {
			n++
		}
	}
	return n
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	t.sink.buf.Reset()
	t.sink.mu.Unlock()
}
