package main

import (
	"log/slog"
	"os"

	"github.com/duke605/parse-loader/utils"
	"github.com/spf13/afero"
)

func setupLogging(fs afero.Fs, cfg LogConfig) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return err
	}

	f := utils.NewDateFile(fs, cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	l := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(l))
	return nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
