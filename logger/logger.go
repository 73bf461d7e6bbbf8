package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger set by Init.
var Logger = logrus.New()

type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = h.service
	}
	return nil
}

// Init configures JSON structured logging for the named service.
func Init(serviceName, level string) *logrus.Logger {
	return initWithOutput(serviceName, level, os.Stdout)
}

func initWithOutput(serviceName, level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	l.SetLevel(logrus.InfoLevel)
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			l.SetLevel(lvl)
		}
	}
	l.AddHook(serviceHook{service: serviceName})

	Logger = l
	return l
}

// WithRequestID returns an entry tagged with the request id, if any.
func WithRequestID(l *logrus.Logger, requestID string) *logrus.Entry {
	if requestID == "" {
		return logrus.NewEntry(l)
	}
	return l.WithField("request_id", requestID)
}
