/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command throttlecat copies a file (or stdin) to another file (or stdout)
// limiting the throughput of reading and writing.
//
// Usage:
//
//	throttlecat [-config config.yml] [-in path] [-out path] [-version]
//
// Configuration (all parameters may be also set via THROTTLECAT_* environment variables,
// e.g. THROTTLECAT_THROTTLE_READ_RATELIMIT=512K):
//
//	log:
//	  level: info
//	  output: stderr
//	throttle:
//	  read:
//	    enabled: true
//	    rateLimit: 512K
//	  write:
//	    enabled: true
//	    rateLimit: 1M
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	golog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acronis/go-throttledio/config"
	"github.com/acronis/go-throttledio/internal/libinfo"
	"github.com/acronis/go-throttledio/log"
	"github.com/acronis/go-throttledio/throttledio"
)

const (
	appName      = "throttlecat"
	envVarPrefix = "THROTTLECAT"
	stdStream    = "-"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runApp(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		stop()
		golog.Fatal(err)
	}
}

func runApp(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	cfgPath := flags.String("config", "", "path to YAML configuration file")
	inPath := flags.String("in", stdStream, `input file path ("-" for stdin)`)
	outPath := flags.String("out", stdStream, `output file path ("-" for stdout)`)
	printVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *printVersion {
		_, err := fmt.Fprintln(stdout, appName, libinfo.GetLibVersion())
		return err
	}

	cfg, err := loadAppConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	src, err := openInput(*inPath, stdin)
	if err != nil {
		return err
	}
	dst, err := openOutput(*outPath, stdout)
	if err != nil {
		_ = src.Close()
		return err
	}

	if err = copyThrottled(ctx, cfg.Throttle, src, dst, logger); err != nil {
		logger.Error("copying failed", log.Error(err))
		return err
	}
	return nil
}

// copyThrottled copies src to dst through throttled decorators and closes both of them.
func copyThrottled(
	ctx context.Context, cfg *throttledio.Config, src io.ReadCloser, dst io.WriteCloser, logger log.FieldLogger,
) (err error) {
	reader, err := cfg.WrapReader(src, throttledio.ReaderOpts{Context: ctx, Logger: logger})
	if err != nil {
		_ = src.Close()
		_ = dst.Close()
		return fmt.Errorf("create throttled reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			logger.Warn("failed to close input", log.Error(closeErr))
		}
	}()

	writer, err := cfg.WrapWriter(dst, throttledio.WriterOpts{Context: ctx, Logger: logger})
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("create throttled writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	startedAt := time.Now()
	n, err := io.Copy(writer, reader)
	fields := []log.Field{
		log.Int64("bytes", n),
		log.DurationIn(time.Since(startedAt), time.Millisecond),
		log.String("reader", reader.String()),
		log.String("writer", writer.String()),
	}
	if err != nil {
		if errors.Is(err, throttledio.ErrInterrupted) {
			logger.Warn("copying interrupted", fields...)
		}
		return fmt.Errorf("copy: %w", err)
	}
	logger.Info("copying finished", fields...)
	return nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == stdStream {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path) //nolint:gosec // path is provided by the user explicitly
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == stdStream {
		return nopWriteCloser{stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // path is provided by the user explicitly
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	cfgLoader := config.NewDefaultLoader(envVarPrefix)
	cfg := NewAppConfig()
	if path == "" {
		return cfg, cfgLoader.Load(cfg)
	}
	return cfg, cfgLoader.LoadFromFile(path, config.DataTypeYAML, cfg)
}

// AppConfig is the configuration of throttlecat.
type AppConfig struct {
	Log      *log.Config
	Throttle *throttledio.Config
}

// NewAppConfig creates a new AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:      log.NewConfig(),
		Throttle: throttledio.NewConfig(),
	}
}

// SetProviderDefaults sets default configuration values.
// Logs go to stderr by default since stdout may be used for data.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
	dp.SetDefault("log.output", string(log.OutputStderr))
}

// Set sets configuration values from config.DataProvider.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}
