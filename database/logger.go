package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaidrashid-git/shopcart-api/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger writes gorm output through zap, using the request logger when the
// query context carries one. Missing rows are a normal lookup result and are
// never logged.
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger logs errors and slow queries at warn level and above.
func NewGormLogger(logger *zap.Logger) *GormLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormLogger{
		log:           logger.Named("gorm"),
		level:         gormlogger.Warn,
		slowThreshold: defaultSlowQuery,
	}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.logger(ctx).Error("sql_failed", append(queryFields(sql, rows, elapsed), zap.Error(err))...)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logger(ctx).Warn("sql_slow", append(queryFields(sql, rows, elapsed),
			zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logger(ctx).Debug("sql", queryFields(sql, rows, elapsed)...)
	}
}

func (g *GormLogger) logger(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, g.log)
}

func queryFields(sql string, rows int64, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.String("source", utils.FileWithLineNum()),
	}
}
