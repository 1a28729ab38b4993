// Package observability defines the logging hooks the module emits
// through. The core never writes to stderr on its own; hosts inject a
// Logger and everything defaults to no-ops.
package observability

import "time"

// Logger is the structured logging contract accepted by every
// component that reports progress or failures.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one structured key/value pair.
type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type durationField struct {
	key string
	val time.Duration
}

func (f durationField) Key() string        { return f.key }
func (f durationField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field               { return stringField{key, value} }
func Int(key string, value int) Field              { return intField{key, value} }
func Float64(key string, value float64) Field      { return float64Field{key, value} }
func Duration(key string, value time.Duration) Field { return durationField{key, value} }
func Error(key string, err error) Field            { return errorField{key, err} }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Standard metric names emitted by the module.
const (
	MetricParseTime           = "document.parse.duration"
	MetricRenderTime          = "viewer.render.duration"
	MetricPagesRendered       = "viewer.pages.rendered"
	MetricExportTime          = "export.duration"
	MetricAnnotationsExported = "export.annotations.exported"
	MetricAnnotationsSkipped  = "export.annotations.skipped"
)
