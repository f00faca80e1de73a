package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field aliases keep zap out of the import list of most packages.

func String(key, val string) zap.Field { return zap.String(key, val) }

func Strings(key string, vals []string) zap.Field { return zap.Strings(key, vals) }

func Int(key string, val int) zap.Field { return zap.Int(key, val) }

func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }

func Bool(key string, val bool) zap.Field { return zap.Bool(key, val) }

func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }

func Error(err error) zap.Field { return zap.Error(err) }
