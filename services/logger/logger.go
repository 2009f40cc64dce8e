package logsvc

import (
	"fmt"
	"testing"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
)

// Logger writes structured logs with zap and forwards them to rollbar when a token is configured.
type Logger struct {
	zl      *zap.Logger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(conf *core.Config) *Logger {
	level := zapcore.InfoLevel
	switch conf.LogLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if conf.LogFormat == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zl = zap.NewExample()
	}
	zl = zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env), zap.String("build", conf.Build))

	l := &Logger{zl: zl, rollbar: conf.RollbarToken != ""}
	if l.rollbar {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
	}
	rollbar.SetEnabled(l.rollbar)
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// NewTestLogger writes to t's log.
func NewTestLogger(t testing.TB) *Logger {
	return &Logger{zl: zaptest.NewLogger(t)}
}

// Sync flushes buffered logs and waits for pending rollbar items.
func (l *Logger) Sync() {
	_ = l.zl.Sync()
	if l.rollbar {
		rollbar.Wait()
	}
}

// fields converts args: errors, field maps & the acting user.User become zap fields.
// Returns the rollbar args (user stripped and set as the rollbar person).
func (l *Logger) fields(msg string, args []interface{}) ([]zap.Field, []interface{}) {
	var usrSet bool
	fields := make([]zap.Field, 0, len(args))
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for i, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if usrSet { // only set one User
				continue
			}
			usrSet = true
			fields = append(fields, zap.String("user_id", a.ID), zap.String("username", a.Username))
			if l.rollbar {
				rollbar.SetPerson(a.ID, a.Username, a.Email)
			}
			continue
		case error:
			fields = append(fields, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
		rbArgs = append(rbArgs, arg)
	}
	if l.rollbar && !usrSet {
		rollbar.ClearPerson()
	}
	return fields, rbArgs
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	fields, _ := l.fields(msg, args)
	l.zl.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	fields, rbArgs := l.fields(msg, args)
	l.zl.Info(msg, fields...)
	if l.rollbar {
		rollbar.Info(rbArgs...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	fields, rbArgs := l.fields(msg, args)
	l.zl.Warn(msg, fields...)
	if l.rollbar {
		rollbar.Warning(rbArgs...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	fields, rbArgs := l.fields(msg, args)
	l.zl.Error(msg, fields...)
	if l.rollbar {
		rollbar.Error(rbArgs...)
	}
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	fields, rbArgs := l.fields(msg, args)
	if l.rollbar {
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	l.zl.Fatal(msg, fields...)
}
