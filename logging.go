package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppLogger provides extended diagnostics on top of the standard logger.
// Everything is off by default.
type AppLogger struct {
	outputDir      string
	logRequests    bool
	logDB          bool
	logWS          bool
	debug          bool
	requestLog     *os.File
	dbLog          *os.File
	wsLog          *os.File
	db             *sqlx.DB
	mu             sync.Mutex
	requestCount   int
	wsMessageCount int
}

// Global application logger (used by server)
var appLogger *AppLogger

var devMode bool

// LogConfig holds logging configuration
type LogConfig struct {
	OutputDir   string
	LogRequests bool
	LogDB       bool
	LogWS       bool
	Debug       bool
}

// NewAppLogger creates a new application logger. db may be nil, in which
// case database dumps are skipped.
func NewAppLogger(config LogConfig, db *sqlx.DB) (*AppLogger, error) {
	al := &AppLogger{
		outputDir:   config.OutputDir,
		logRequests: config.LogRequests,
		logDB:       config.LogDB,
		logWS:       config.LogWS,
		debug:       config.Debug,
		db:          db,
	}

	if al.outputDir == "" {
		return al, nil
	}

	var err error
	if al.logRequests {
		al.requestLog, err = os.OpenFile(filepath.Join(al.outputDir, "requests.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open request log: %w", err)
		}
	}
	if al.logDB {
		al.dbLog, err = os.OpenFile(filepath.Join(al.outputDir, "database.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			al.Close()
			return nil, fmt.Errorf("failed to open database log: %w", err)
		}
	}
	if al.logWS {
		al.wsLog, err = os.OpenFile(filepath.Join(al.outputDir, "websocket.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			al.Close()
			return nil, fmt.Errorf("failed to open WebSocket log: %w", err)
		}
	}
	return al, nil
}

// Close closes all open log files
func (al *AppLogger) Close() {
	if al.requestLog != nil {
		al.requestLog.Close()
	}
	if al.dbLog != nil {
		al.dbLog.Close()
	}
	if al.wsLog != nil {
		al.wsLog.Close()
	}
}

// LogRequest logs an HTTP request and the response it got
func (al *AppLogger) LogRequest(method, url string, status int, header http.Header, respBody []byte) {
	if !al.logRequests || al.requestLog == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	al.requestCount++
	timestamp := time.Now().Format("15:04:05.000")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n========== REQUEST #%d [%s] ==========\n", al.requestCount, timestamp)
	fmt.Fprintf(&buf, "%s %s\n", method, url)

	if status != 0 {
		fmt.Fprintf(&buf, "\n--- Response [%d %s] ---\n", status, http.StatusText(status))
		for k, v := range header {
			fmt.Fprintf(&buf, "%s: %s\n", k, strings.Join(v, ", "))
		}
	}

	if len(respBody) > 0 {
		buf.WriteString("\n--- Response Body ---\n")
		if len(respBody) > 5000 {
			buf.Write(respBody[:5000])
			fmt.Fprintf(&buf, "\n... (truncated, %d bytes total)\n", len(respBody))
		} else {
			buf.Write(respBody)
		}
		buf.WriteString("\n")
	}

	al.requestLog.Write(buf.Bytes())
}

// LogWebSocket logs a WebSocket message
func (al *AppLogger) LogWebSocket(direction, who, message string) {
	if !al.logWS || al.wsLog == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	al.wsMessageCount++
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(al.wsLog, "[%s] #%d %s [%s]: %s\n", timestamp, al.wsMessageCount, direction, who, message)
}

// LogDB dumps the archive tables
func (al *AppLogger) LogDB(context string) {
	if !al.logDB || al.dbLog == nil || al.db == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n========== DATABASE DUMP [%s] ==========\n", time.Now().Format("15:04:05.000"))
	fmt.Fprintf(&buf, "Context: %s\n\n", context)

	for _, table := range []string{"game", "game_event"} {
		fmt.Fprintf(&buf, "--- Table: %s ---\n", table)
		rows, err := al.db.Queryx("SELECT rowid, * FROM " + table)
		if err != nil {
			fmt.Fprintf(&buf, "Error: %v\n\n", err)
			continue
		}
		count := 0
		for rows.Next() {
			values, err := rows.SliceScan()
			if err != nil {
				fmt.Fprintf(&buf, "Error scanning row: %v\n", err)
				continue
			}
			count++
			cells := make([]string, len(values))
			for i, v := range values {
				switch val := v.(type) {
				case nil:
					cells[i] = "NULL"
				case []byte:
					cells[i] = string(val)
				default:
					cells[i] = fmt.Sprintf("%v", val)
				}
			}
			fmt.Fprintf(&buf, "Row %d: %s\n", count, strings.Join(cells, " | "))
		}
		rows.Close()
		if count == 0 {
			buf.WriteString("(empty)\n")
		}
		buf.WriteString("\n")
	}

	al.dbLog.Write(buf.Bytes())
}

// Debug logs a debug message if debug mode is enabled
func (al *AppLogger) Debug(format string, args ...any) {
	if !al.debug {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// IsEnabled returns true if any extended logging is enabled
func (al *AppLogger) IsEnabled() bool {
	return al.logRequests || al.logDB || al.logWS || al.debug
}

// LoggingHandler wraps http.Handler to log requests/responses.
// WebSocket upgrades need http.Hijacker, so they are passed through unrecorded.
type LoggingHandler struct {
	Handler http.Handler
	Logger  *AppLogger
}

func (l *LoggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		l.Logger.LogRequest(r.Method, r.URL.String(), 0, nil, []byte("[WebSocket upgrade]"))
		l.Handler.ServeHTTP(w, r)
		return
	}

	rec := httptest.NewRecorder()
	l.Handler.ServeHTTP(rec, r)

	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	respBody := rec.Body.Bytes()
	w.Write(respBody)

	logged := respBody
	if rec.Header().Get("Content-Encoding") == "gzip" {
		logged = []byte(fmt.Sprintf("[gzip, %d bytes]", len(respBody)))
	}
	l.Logger.LogRequest(r.Method, r.URL.String(), rec.Code, rec.Header(), logged)
}

// logError logs an infrastructure error with context and dumps the archive in dev mode
func logError(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
	if devMode {
		LogDBState("error: " + context)
	}
}

// LogWSMessage logs a WebSocket message using the global logger
func LogWSMessage(direction, who, message string) {
	if appLogger != nil {
		appLogger.LogWebSocket(direction, who, message)
	}
}

// LogDBState logs the database state using the global logger
func LogDBState(context string) {
	if appLogger != nil {
		appLogger.LogDB(context)
	}
}

// DebugLog logs a debug message using the global logger
func DebugLog(format string, args ...any) {
	if appLogger != nil {
		appLogger.Debug(format, args...)
	}
}

// CloseAppLogger closes the global application logger
func CloseAppLogger() {
	if appLogger != nil {
		appLogger.Close()
	}
}
