package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns a singleton zap.Logger configured for structured logging.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context) *zap.Logger {
	if lg == nil {
		lz, _ := zap.NewDevelopment()
		return lz
	}

	if ctx == nil {
		return lg
	}

	return lg.With(zap.String("request_id", requestIDFromContext(ctx)))
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// MaskString masks arbitrary sensitive strings (SIDs, session IDs) for logs.
// Shows the first and last 2 characters with *** in between.
// Example: "VA0123456789" -> "VA***89"
func MaskString(s string) string {
	if s == "" {
		return ""
	}

	length := len(s)
	if length <= 4 {
		return "***"
	}

	return s[:2] + "***" + s[length-2:]
}

// MaskIP performs partial IP masking, showing first 2 octets for IPv4 and
// the first 4 groups for IPv6.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	masked := maskIPv4(ip)
	if masked != "" {
		return masked
	}

	masked = maskIPv6(ip)
	if masked != "" {
		return masked
	}

	return "***"
}

func maskIPv4(ip string) string {
	parts := splitOn(ip, '.')
	if len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".*.*"
	}
	return ""
}

func maskIPv6(ip string) string {
	parts := splitOn(ip, ':')
	if len(parts) >= 4 {
		return parts[0] + ":" + parts[1] + ":" + parts[2] + ":" + parts[3] + ":*:*:*:*"
	}
	return ""
}

func splitOn(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	if len(parts) == 1 {
		return nil
	}
	return parts
}
