package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

type Options struct {
	Level  string
	Format string // "json" or "text"
	File   string // optional, rotated
}

func Init() {
	Configure(Options{})
}

// Configure replaces the shared logger. Unknown levels fall back to info.
func Configure(opts Options) {
	logger = New(opts)
}

func New(opts Options) *logrus.Logger {
	l := logrus.New()

	if strings.EqualFold(opts.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		l.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
	} else {
		l.SetOutput(os.Stderr)
	}
	return l
}

func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init()
		}
	})
	return logger
}
