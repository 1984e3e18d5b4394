package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// plainEncoder writes one line per entry:
//
//	15:04:05  WARN  ingest.reader  Parsed file  count=12 file=/data/v1.nt
//
// Output never contains a comma. Callers that merge stderr into stdout treat
// the only line with a comma as the result line.
type plainEncoder struct {
	*zapcore.MapObjectEncoder // context fields added through With
}

func newPlainEncoder() *plainEncoder {
	return &plainEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *plainEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &plainEncoder{MapObjectEncoder: clone}
}

func (enc *plainEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()

	line.AppendString(ent.Time.Format(time.TimeOnly))
	if ent.Level != zapcore.InfoLevel {
		line.AppendString("  ")
		line.AppendString(ent.Level.CapitalString())
	}
	if ent.LoggerName != "" {
		line.AppendString("  ")
		line.AppendString(ent.LoggerName)
	}
	line.AppendString("  ")
	line.AppendString(sanitize(ent.Message))

	m := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		m.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(m)
	}
	if kv := formatFields(m.Fields); kv != "" {
		line.AppendString("  ")
		line.AppendString(kv)
	}

	line.AppendString("\n")
	return line, nil
}

// formatFields renders fields as space separated key=value pairs sorted by key.
// Verbose error renderings (stack traces) are dropped.
func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasSuffix(k, "Verbose") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+sanitize(fmt.Sprint(fields[k])))
	}
	return strings.Join(parts, " ")
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	return strings.ReplaceAll(s, "\n", " ")
}
