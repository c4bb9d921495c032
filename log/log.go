// Package log is the process wide logger of the requester client and the
// worker service, a thin layer over a zap SugaredLogger.
package log

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureSink is the output name routing the log lines to captureWriter.
const captureSink = "logcapture"

var (
	log   *zap.SugaredLogger
	level = zap.NewAtomicLevel()

	errorLog     *os.File
	errorLogLock sync.Mutex
	// panicOnInvalidChars is set from $LOG_PANIC_ON_INVALIDCHARS
	panicOnInvalidChars bool

	captureWriter   io.Writer
	captureLock     sync.Mutex
	captureRegister sync.Once
)

func init() {
	// $LOG_LEVEL applies until Init is called, tests included
	l := "error"
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		l = s
	}
	Init(l, "stderr")
}

// Logger returns the underlying sugared logger, for third party components
// such as HTTP servers.
func Logger() *zap.SugaredLogger { return log }

// Init builds the logger. Output is "stdout", "stderr" or a file path.
// Unknown levels fall back to info.
func Init(logLevel, output string) {
	if output == captureSink {
		captureRegister.Do(func() {
			if err := zap.RegisterSink(captureSink, func(*url.URL) (zap.Sink, error) {
				return capture{}, nil
			}); err != nil {
				panic(err)
			}
		})
		output = captureSink + "://"
	}
	level.SetLevel(parseLevel(logLevel))
	logger, err := newConfig(output).Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = logger.Sugar()
	log.Debugf("logger ready at level %s, writing to %s", level, output)

	// an unset or unparsable value leaves the guard off
	panicOnInvalidChars, _ = strconv.ParseBool(os.Getenv("LOG_PANIC_ON_INVALIDCHARS"))
}

// Capture routes the log lines to w, without timestamps or callers, until
// the returned function is called. It is meant for tests checking what was
// logged, which must not run in parallel with each other.
func Capture(w io.Writer, logLevel string) (restore func()) {
	captureLock.Lock()
	captureWriter = w
	captureLock.Unlock()
	Init(logLevel, captureSink)
	return func() {
		captureLock.Lock()
		captureWriter = nil
		captureLock.Unlock()
		l := "error"
		if s := os.Getenv("LOG_LEVEL"); s != "" {
			l = s
		}
		Init(l, "stderr")
	}
}

// SetFileErrorLog also appends the warning and error messages to the file
// at path. An empty path stops writing to the current file.
func SetFileErrorLog(path string) error {
	errorLogLock.Lock()
	defer errorLogLock.Unlock()
	if errorLog != nil {
		_ = errorLog.Close()
		errorLog = nil
	}
	if path == "" {
		return nil
	}
	log.Infof("using file %s for logging warnings and errors", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	errorLog = f
	return nil
}

func writeErrorToFile(msg string) {
	errorLogLock.Lock()
	defer errorLogLock.Unlock()
	if errorLog == nil {
		return
	}
	// errors writing the error log have nowhere to go
	_, _ = fmt.Fprintf(errorLog, "[%s] %s\n", time.Now().Format("2006/0102/150405"), msg)
}

// checkInvalidChars panics on a message holding the Unicode replacement
// character when the guard is on. Such messages usually come from a format
// verb not matching its argument, like %s on raw bytes.
func checkInvalidChars(args ...any) {
	if !panicOnInvalidChars {
		return
	}
	if s := fmt.Sprint(args...); strings.ContainsRune(s, '\uFFFD') {
		panic(fmt.Sprintf("log line with invalid chars: %s", s))
	}
}

// SetLevel changes the level of the running logger.
func SetLevel(logLevel string) { level.SetLevel(parseLevel(logLevel)) }

// Sync flushes any buffered line, to be called before the process exits.
func Sync() { _ = log.Sync() }

func parseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zap.InfoLevel
	}
	return l
}

func newConfig(output string) zap.Config {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime: func(ts time.Time, e zapcore.PrimitiveArrayEncoder) {
			e.AppendString(ts.Local().Format(time.RFC3339))
		},
	}
	if strings.HasPrefix(output, captureSink) {
		// stable lines for the tests
		enc.TimeKey = ""
		enc.CallerKey = ""
		enc.StacktraceKey = ""
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zap.Config{
		Level:            level,
		Encoding:         "console",
		EncoderConfig:    enc,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}
}

type capture struct{}

func (capture) Write(p []byte) (int, error) {
	captureLock.Lock()
	defer captureLock.Unlock()
	if captureWriter == nil {
		return len(p), nil
	}
	return captureWriter.Write(p)
}

func (capture) Sync() error  { return nil }
func (capture) Close() error { return nil }

// Debug logs at debug level.
func Debug(args ...any) {
	log.Debug(args...)
	checkInvalidChars(args...)
}

// Info logs at info level.
func Info(args ...any) {
	log.Info(args...)
	checkInvalidChars(args...)
}

// Warn logs at warn level.
func Warn(args ...any) {
	log.Warn(args...)
	writeErrorToFile(fmt.Sprint(args...))
	checkInvalidChars(args...)
}

// Error logs at error level.
func Error(args ...any) {
	log.Error(args...)
	writeErrorToFile(fmt.Sprint(args...))
	checkInvalidChars(args...)
}

// Fatal logs and exits the process.
func Fatal(args ...any) {
	log.Fatal(args...)
	panic("unreachable")
}

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...any) {
	log.Debugf(template, args...)
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Infof logs a formatted message at info level.
func Infof(template string, args ...any) {
	log.Infof(template, args...)
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...any) {
	log.Warnf(template, args...)
	msg := fmt.Sprintf(template, args...)
	writeErrorToFile(msg)
	checkInvalidChars(msg)
}

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...any) {
	log.Errorf(template, args...)
	msg := fmt.Sprintf(template, args...)
	writeErrorToFile(msg)
	checkInvalidChars(msg)
}

// Fatalf logs a formatted message and exits the process.
func Fatalf(template string, args ...any) {
	log.Fatalf(template, args...)
	panic("unreachable")
}

// Debugw logs a message with key-value pairs at debug level.
func Debugw(msg string, keysAndValues ...any) { log.Debugw(msg, keysAndValues...) }

// Infow logs a message with key-value pairs at info level.
func Infow(msg string, keysAndValues ...any) { log.Infow(msg, keysAndValues...) }

// Warnw logs a message with key-value pairs at warn level.
func Warnw(msg string, keysAndValues ...any) {
	log.Warnw(msg, keysAndValues...)
	writeErrorToFile(fmt.Sprintf("%s %v", msg, keysAndValues))
}

// Errorw logs a message with key-value pairs at error level.
func Errorw(msg string, keysAndValues ...any) {
	log.Errorw(msg, keysAndValues...)
	writeErrorToFile(fmt.Sprintf("%s %v", msg, keysAndValues))
}
