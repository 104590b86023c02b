// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/netSkope/s3-adls-connector/internal/adls"
	"github.com/netSkope/s3-adls-connector/internal/checksum"
	"github.com/netSkope/s3-adls-connector/internal/config"
	"github.com/netSkope/s3-adls-connector/internal/convert"
	"github.com/netSkope/s3-adls-connector/internal/report"
	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/transfer"
	"github.com/netSkope/s3-adls-connector/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List CSV, JSON and Parquet files in the source bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateSource(); err != nil {
				return err
			}

			src, err := newSource(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			p, err := transfer.NewPipeline(src, nil, nil, transfer.Options{}, a.logger)
			if err != nil {
				return err
			}

			objects, err := p.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list bucket %s: %w", a.cfg.S3Bucket, err)
			}
			if len(objects) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No CSV, JSON or Parquet files found in %s\n", a.cfg.S3Bucket)
				return nil
			}
			report.Listing(cmd.OutOrStdout(), objects)
			return nil
		},
	}
}

func newTransferCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "transfer [keys...]",
		Short:   "Copy the named objects (or --all) into raw_data/ in the ADLS container",
		Example: "s3adls transfer sales.csv events.json --convert --verify",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one object key or pass --all")
			}
			if len(args) > 0 && all {
				return fmt.Errorf("object keys and --all are mutually exclusive")
			}
			return runTransfer(cmd.Context(), a, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Transfer every listed file")
	return cmd
}

func runTransfer(ctx context.Context, a *app, keys []string, out, progress io.Writer) error {
	cfg := a.cfg
	if err := cfg.ValidateSource(); err != nil {
		return err
	}
	if err := cfg.ValidateDestination(); err != nil {
		return err
	}

	algo, err := checksum.ParseAlgorithm(cfg.ChecksumAlgorithm)
	if err != nil {
		return err
	}

	var conv transfer.Converter
	if cfg.ConvertToParquet {
		codec, err := convert.ParseCompression(cfg.ParquetCompression)
		if err != nil {
			return err
		}
		conv = convert.NewConverter(cfg.Delimiter(), codec, a.logger)
	}

	src, err := newSource(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	dest, err := newDestination(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("Starting s3adls transfer",
		zap.String("bucket", cfg.S3Bucket),
		zap.String("region", cfg.AWSRegion),
		zap.String("account", cfg.AzureAccountName),
		zap.String("container", cfg.AzureContainer),
		zap.Bool("convert", cfg.ConvertToParquet),
		zap.Bool("verify", cfg.VerifyChecksum))

	p, err := transfer.NewPipeline(src, dest, conv, transfer.Options{
		Convert:           cfg.ConvertToParquet,
		Verify:            cfg.VerifyChecksum,
		ChecksumAlgorithm: algo,
		ScratchBase:       cfg.ScratchDir,
		Progress:          progressPrinter(progress),
	}, a.logger)
	if err != nil {
		return err
	}

	listing, err := p.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bucket %s: %w", cfg.S3Bucket, err)
	}

	sel := transfer.SelectAll(listing)
	if len(keys) > 0 {
		sel = transfer.Select(listing, keys)
	}
	if sel.Len() == 0 {
		fmt.Fprintln(out, "Nothing to transfer")
		return nil
	}

	rep, runErr := p.Run(ctx, sel)
	report.Outcomes(out, rep)

	if runErr != nil {
		return fmt.Errorf("transfer failed: %w", runErr)
	}
	if !rep.OK() {
		return fmt.Errorf("%d of %d files failed", rep.Failed(), len(rep.Outcomes))
	}
	return nil
}

func newSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*s3.Source, error) {
	return s3.NewSource(ctx, s3.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		Endpoint:        cfg.S3Endpoint,
	}, logger)
}

func newDestination(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*adls.Destination, error) {
	key, err := util.ResolveAzureAccountKey(ctx, cfg.AzureAccountKey, cfg.AzureKeySecret,
		func(ctx context.Context) (util.SecretsClient, error) {
			return util.NewSecretsClient(ctx, cfg.AzureKeySecretRegion, util.AWSCredentials{
				AccessKeyID:     cfg.AWSAccessKeyID,
				SecretAccessKey: cfg.AWSSecretAccessKey,
				SessionToken:    cfg.AWSSessionToken,
			})
		})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve azure account key: %w", err)
	}

	store, err := adls.NewAzureStore(adls.Config{
		AccountName: cfg.AzureAccountName,
		AccountKey:  key,
		Container:   cfg.AzureContainer,
		Endpoint:    cfg.AzureEndpoint,
	})
	if err != nil {
		return nil, err
	}
	return adls.NewDestination(store, logger), nil
}

// progressPrinter writes one line per completed stage or failed file.
func progressPrinter(w io.Writer) func(transfer.Event) {
	return func(e transfer.Event) {
		if e.Key == "" {
			return
		}
		if e.Err != nil {
			fmt.Fprintf(w, "[%d/%d] %s: failed: %v\n", e.Index, e.Total, e.Key, e.Err)
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s: %s\n", e.Index, e.Total, e.Key, e.Stage)
	}
}
