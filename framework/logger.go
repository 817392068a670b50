package framework

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the minimal logging interface used throughout the harness. *log.Logger satisfies it,
// and so does the value returned by ZapLogger.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

// ZapLogger bridges a zap logger into the Logger interface. Every message is written at the
// given level.
func ZapLogger(z *zap.Logger, level zapcore.Level) Logger {
	l, err := zap.NewStdLogAt(z, level)
	if err != nil {
		return zap.NewStdLog(z)
	}
	return l
}

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger is used internally to record all output from a test scope. See comments on
// ldtest.(*T).DebugLogger() for the rules of logging in parent/child scopes.
//
// Sibling tests may run on different goroutines, so a parent can have several children at
// once. While it has any, a message sent to the parent is recorded by each child instead.
type CapturingLogger struct {
	messages []CapturedMessage
	children map[*CapturingLogger]struct{}
	lock     sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	l.record(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.record(fmt.Sprintf(message, args...))
}

func (l *CapturingLogger) record(message string) {
	l.deliver(CapturedMessage{Time: time.Now(), Message: message})
}

func (l *CapturingLogger) deliver(m CapturedMessage) {
	l.lock.Lock()
	if len(l.children) == 0 {
		l.messages = append(l.messages, m)
		l.lock.Unlock()
		return
	}
	children := make([]*CapturingLogger, 0, len(l.children))
	for c := range l.children {
		children = append(children, c)
	}
	l.lock.Unlock()
	for _, c := range children {
		c.deliver(m)
	}
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append(CapturedOutput(nil), l.messages...)
}

// AddChildLogger makes child start with a copy of everything l has recorded, and receive l's
// messages until RemoveChildLogger is called.
func (l *CapturingLogger) AddChildLogger(child *CapturingLogger) {
	inherited := l.Output()
	l.lock.Lock()
	if l.children == nil {
		l.children = make(map[*CapturingLogger]struct{})
	}
	l.children[child] = struct{}{}
	l.lock.Unlock()

	child.lock.Lock()
	child.messages = append(inherited, child.messages...)
	child.lock.Unlock()
}

func (l *CapturingLogger) RemoveChildLogger(child *CapturingLogger) {
	l.lock.Lock()
	delete(l.children, child)
	l.lock.Unlock()
}

// ToString formats the output one message per line, each starting with prefix and a timestamp.
func (output CapturedOutput) ToString(prefix string) string {
	var b strings.Builder
	for i, m := range output {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s[%s] %s", prefix, m.Time.Format(timestampFormat), m.Message)
	}
	return b.String()
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

// LoggerWithPrefix returns a Logger that puts prefix in front of every message.
func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(p.prefix + strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}
