// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netSkope/s3-adls-connector/internal/config"
	s3adlslog "github.com/netSkope/s3-adls-connector/internal/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "s3adls",
		Short:         "Copy files from an S3 bucket into ADLS Gen2",
		Example:       "s3adls list --s3-bucket my-bucket --aws-region us-east-1",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, err := s3adlslog.NewLogger(s3adlslog.Options{
				Dir:    cfg.LogDir,
				Name:   "s3adls",
				Debug:  cfg.LogDebug,
				Stdout: cfg.LogStdout,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger.With(zap.String("cmd", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newListCommand(a))
	root.AddCommand(newTransferCommand(a))
	return root
}
