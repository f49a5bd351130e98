package mylog

import (
	"context"
	"fmt"
	"os"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newStandardLogger
	}
}

// standardLogger writes plain lines to stderr, used for local runs
type standardLogger struct {
	component string
}

func newStandardLogger(component string) Logger {
	return standardLogger{
		component: component,
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "\n%s - %s - %s - %s\n", l.component, traceLabel, string(severity), fmt.Sprintf(format, a...))
}
