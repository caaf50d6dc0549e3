package bootstrap

import (
	"fmt"
	"os"

	"warden/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the application logger. format is "console" (coloured, for
// terminals) or "json".
func InitLogger(level, format string) (*zap.Logger, *zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(configFile string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// logConfig reports the settings that shape token handling.
func logConfig(cfg *config.Config, sugar *zap.SugaredLogger) {
	if cfg.ConfigFile == "" {
		sugar.Info("No config file found, using defaults and env vars")
	} else {
		sugar.Infow("Loaded config file", "path", cfg.ConfigFile)
	}
	sugar.Infow("CSRF settings",
		"enabled", cfg.CSRF.Enabled,
		"meta", cfg.CSRF.MetaName,
		"header", cfg.CSRF.HeaderName,
		"field", cfg.CSRF.FieldName,
		"token_ttl", cfg.CSRF.TokenTTL,
		"store", cfg.Store.Backend)
	if !cfg.CSRF.Enabled {
		sugar.Warn("CSRF validation is DISABLED - state-changing requests are not checked")
	}
}
