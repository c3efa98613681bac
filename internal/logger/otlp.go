package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mietevo/mietevo-backend/internal/httpclient"
)

// OTLP severity numbers for the four levels the worker emits.
type Severity int

const (
	SeverityDebug Severity = 5
	SeverityInfo  Severity = 9
	SeverityWarn  Severity = 13
	SeverityError Severity = 17
)

func (s Severity) Text() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// OTLPConfig configures the batched log export. An empty Token disables
// buffering entirely: records are then only mirrored to the console logger.
type OTLPConfig struct {
	Endpoint    string
	Token       string
	ServiceName string
	Environment string
}

// InvocationLogger buffers structured log records for the duration of one
// request and flushes them as a single OTLP batch. It always mirrors every
// record to the wrapped console logger. One instance is owned by exactly one
// invocation and must not be shared across requests.
type InvocationLogger struct {
	*Logger

	cfg     OTLPConfig
	client  httpclient.Client
	records []otlpLogRecord
}

type otlpLogRecord struct {
	TimeUnixNano   string          `json:"timeUnixNano"`
	SeverityNumber int             `json:"severityNumber"`
	SeverityText   string          `json:"severityText"`
	Body           otlpValue       `json:"body"`
	Attributes     []otlpAttribute `json:"attributes,omitempty"`
}

type otlpAttribute struct {
	Key   string    `json:"key"`
	Value otlpValue `json:"value"`
}

type otlpValue struct {
	StringValue *string         `json:"stringValue,omitempty"`
	IntValue    *string         `json:"intValue,omitempty"`
	DoubleValue *float64        `json:"doubleValue,omitempty"`
	BoolValue   *bool           `json:"boolValue,omitempty"`
	ArrayValue  *otlpArrayValue `json:"arrayValue,omitempty"`
}

type otlpArrayValue struct {
	Values []otlpValue `json:"values"`
}

// NewInvocationLogger creates a fresh per-invocation logger on top of the
// shared console logger.
func NewInvocationLogger(base *Logger, cfg OTLPConfig, client httpclient.Client) *InvocationLogger {
	return &InvocationLogger{
		Logger: base,
		cfg:    cfg,
		client: client,
	}
}

// Log appends one record and mirrors it to the console logger.
func (l *InvocationLogger) Log(sev Severity, msg string, attrs map[string]any) {
	kv := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		kv = append(kv, k, v)
	}
	switch sev {
	case SeverityDebug:
		l.Debugw(msg, kv...)
	case SeverityWarn:
		l.Warnw(msg, kv...)
	case SeverityError:
		l.Errorw(msg, kv...)
	default:
		l.Infow(msg, kv...)
	}

	// Without a token there is nothing to export, so do not even buffer.
	if l.cfg.Token == "" {
		return
	}

	record := otlpLogRecord{
		TimeUnixNano:   fmt.Sprintf("%d", time.Now().UnixNano()),
		SeverityNumber: int(sev),
		SeverityText:   sev.Text(),
		Body:           stringValue(msg),
	}
	for k, v := range attrs {
		record.Attributes = append(record.Attributes, otlpAttribute{
			Key:   k,
			Value: flattenValue(v),
		})
	}
	l.records = append(l.records, record)
}

// Flush assembles one OTLP log batch and sends it without delaying the
// caller. The buffer is cleared before the network call so a repeated flush
// never double-sends. Network failures are visible on the console only.
func (l *InvocationLogger) Flush(ctx context.Context) {
	if len(l.records) == 0 {
		return
	}

	records := l.records
	l.records = nil

	payload, err := json.Marshal(l.batchPayload(records))
	if err != nil {
		l.Errorw("failed to marshal log batch", "error", err)
		return
	}

	req := &httpclient.Request{
		Method: "POST",
		URL:    l.cfg.Endpoint + "/i/v1/logs",
		Headers: map[string]string{
			"Authorization": "Bearer " + l.cfg.Token,
		},
		Body: payload,
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := l.client.Send(sendCtx, req); err != nil {
			l.Errorw("failed to flush log batch", "error", err)
		}
	}()
}

func (l *InvocationLogger) batchPayload(records []otlpLogRecord) map[string]any {
	return map[string]any{
		"resourceLogs": []map[string]any{
			{
				"resource": map[string]any{
					"attributes": []otlpAttribute{
						{Key: "service.name", Value: stringValue(l.cfg.ServiceName)},
						{Key: "deployment.environment", Value: stringValue(l.cfg.Environment)},
					},
				},
				"scopeLogs": []map[string]any{
					{"logRecords": records},
				},
			},
		},
	}
}

// BufferedCount reports how many records await the next flush.
func (l *InvocationLogger) BufferedCount() int {
	return len(l.records)
}

func stringValue(s string) otlpValue {
	return otlpValue{StringValue: &s}
}

// flattenValue maps a primitive or array-of-primitive attribute to its OTLP
// representation. Anything else is stringified.
func flattenValue(v any) otlpValue {
	switch val := v.(type) {
	case string:
		return stringValue(val)
	case bool:
		return otlpValue{BoolValue: &val}
	case int:
		s := fmt.Sprintf("%d", val)
		return otlpValue{IntValue: &s}
	case int64:
		s := fmt.Sprintf("%d", val)
		return otlpValue{IntValue: &s}
	case float64:
		return otlpValue{DoubleValue: &val}
	case []string:
		values := make([]otlpValue, 0, len(val))
		for _, item := range val {
			values = append(values, stringValue(item))
		}
		return otlpValue{ArrayValue: &otlpArrayValue{Values: values}}
	case []any:
		values := make([]otlpValue, 0, len(val))
		for _, item := range val {
			values = append(values, flattenValue(item))
		}
		return otlpValue{ArrayValue: &otlpArrayValue{Values: values}}
	default:
		return stringValue(fmt.Sprintf("%v", val))
	}
}
