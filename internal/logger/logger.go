package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const permission = 0664

type LogBuild struct {
	writer io.Writer
	path   string
	level  string
}

type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

var global = zerolog.New(os.Stdout).With().Timestamp().Logger()

func New() *LogBuild {
	return &LogBuild{}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	writer := build.writer
	if writer == nil {
		writer = os.Stdout
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}
	level, err := zerolog.ParseLevel(build.level)
	if err != nil || build.level == "" {
		level = zerolog.InfoLevel
	}
	logData.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logData, nil
}

// Close 关闭日志文件（如果有）
func (d *LogData) Close() error {
	if d.LogFile == nil {
		return nil
	}
	return d.LogFile.Close()
}

// SetGlobal replaces the process-wide logger returned by L.
func SetGlobal(l zerolog.Logger) {
	global = l
}

func L() *zerolog.Logger {
	return &global
}

// Gin 请求日志中间件
func Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := global.Info()
		if status >= 500 {
			event = global.Error()
		} else if status >= 400 {
			event = global.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
