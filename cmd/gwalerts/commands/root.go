package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gwalerts/internal/config"
)

var cfgFile string

func Execute() error {
	root := &cobra.Command{
		Use:           "gwalerts",
		Short:         "Download LVK gravitational-wave alerts and write MOC sky regions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "gwalerts.yaml", "path to YAML config file")

	root.AddCommand(listenCmd(), writeMOCCmd(), historyCmd())
	return root.Execute()
}

// loadConfig loads .env (when present) and then the YAML config.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load(cfgFile)
}

// newLogger builds the console logger, teeing JSON lines into the
// configured log file when one is set. The returned func closes the file.
func newLogger(cfg config.Log) (zerolog.Logger, func(), error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var w io.Writer = console
	closer := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(console, f)
		closer = func() { f.Close() }
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}
