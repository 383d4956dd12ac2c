package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line-oriented logger. Every line is a single
// JSON object so log shippers can ingest the stream without framing rules.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one JSON log line. A "ts" timestamp and the service name
// are filled in; callers provide "level" and "msg" plus any context fields.
// Secret values must never be passed here, only identifiers.
func LogRequest(entry map[string]any) {
	fields := make(map[string]any, len(entry)+2)
	for k, v := range entry {
		fields[k] = v
	}
	if _, ok := fields["ts"]; !ok {
		fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if _, ok := fields["level"]; !ok {
		fields["level"] = "info"
	}
	fields["service"] = "keyvault"

	data, err := json.Marshal(fields)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed","service":"keyvault"}`)
		return
	}
	Logger().Println(string(data))
}
