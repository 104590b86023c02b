// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netSkope/s3-adls-connector/internal/checksum"
	"github.com/netSkope/s3-adls-connector/internal/convert"
	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/scratch"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"go.uber.org/zap"
)

// Source lists and fetches objects. Implemented by *s3.Source.
type Source interface {
	List(ctx context.Context) ([]s3.Object, error)
	Fetch(ctx context.Context, obj s3.Object, dir string) (string, error)
}

// Destination receives staged files. Implemented by *adls.Destination.
type Destination interface {
	CheckContainer(ctx context.Context) error
	EnsureDirectory(ctx context.Context) error
	Upload(ctx context.Context, localPath string) (string, error)
	RemoteDigest(ctx context.Context, remotePath string, algo checksum.Algorithm) (string, error)
}

// Converter re-encodes a staged file. Implemented by *convert.Converter.
type Converter interface {
	Convert(path string, kind convert.Kind) (string, error)
}

// Options control a run.
type Options struct {
	Convert           bool
	Verify            bool
	ChecksumAlgorithm checksum.Algorithm
	// ScratchBase is the parent of the run's scratch directory. Empty means
	// the system temporary directory.
	ScratchBase string
	// Progress, when set, receives an event for every state change and every
	// completed file stage.
	Progress func(Event)
}

// Pipeline sequences list, select and transfer for a single run.
type Pipeline struct {
	source    Source
	dest      Destination
	converter Converter
	opts      Options
	logger    *zap.Logger
	state     State
}

// NewPipeline wires a pipeline. A converter is required only when
// opts.Convert is set.
func NewPipeline(source Source, dest Destination, converter Converter, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if opts.Convert && converter == nil {
		return nil, fmt.Errorf("conversion requested without a converter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:    source,
		dest:      dest,
		converter: converter,
		opts:      opts,
		logger:    logger,
		state:     StateIdle,
	}, nil
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	return p.state
}

// List enumerates the source. On success the pipeline waits for a
// selection.
func (p *Pipeline) List(ctx context.Context) ([]s3.Object, error) {
	if p.state != StateIdle && p.state != StateSelecting {
		return nil, fmt.Errorf("cannot list in state %s", p.state)
	}
	p.transition(StateListing)

	objects, err := p.source.List(ctx)
	if err != nil {
		p.transition(StateFailed)
		return nil, err
	}

	p.transition(StateSelecting)
	return objects, nil
}

// Run transfers the selection one file at a time in selection order. A file
// failure is recorded on its outcome and the run moves on to the next file.
// The returned error is set only when the run failed as a whole (scratch
// setup, destination pre-flight or scratch removal); the report is returned
// in every case. The scratch directory never outlives Run.
func (p *Pipeline) Run(ctx context.Context, sel Selection) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	if p.state != StateSelecting {
		report.Finished = time.Now()
		report.Err = fmt.Errorf("cannot run transfer in state %s", p.state)
		return report, report.Err
	}
	if p.dest == nil {
		report.Finished = time.Now()
		report.Err = fmt.Errorf("destination is required")
		return report, report.Err
	}

	logger := p.logger.With(zap.String("run_id", report.RunID))
	p.transition(StateTransferring)

	logger.Info("Starting transfer",
		zap.Int("files", len(sel.Items)),
		zap.Bool("convert", p.opts.Convert),
		zap.Bool("verify", p.opts.Verify))

	prefix := scratch.DefaultPrefix + report.RunID[:8] + "_"
	err := scratch.With(p.opts.ScratchBase, prefix, func(dir *scratch.Dir) error {
		report.ScratchDir = dir.Path()

		if err := p.preflight(ctx); err != nil {
			return err
		}

		total := len(sel.Items)
		for i, item := range sel.Items {
			outcome := p.transferOne(ctx, logger, dir, i, total, item)
			report.Outcomes = append(report.Outcomes, outcome)
		}
		return nil
	})
	report.Finished = time.Now()

	if err != nil {
		report.Err = err
	}
	p.transition(StateCleaned)

	logger.Info("Transfer finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Int("checksum_mismatches", report.ChecksumMismatches()),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
		zap.Error(err))

	if err != nil {
		p.transition(StateFailed)
		return report, err
	}
	p.transition(StateDone)
	return report, nil
}

func (p *Pipeline) preflight(ctx context.Context) error {
	if err := p.dest.CheckContainer(ctx); err != nil {
		return fmt.Errorf("destination check failed: %w", err)
	}
	if err := p.dest.EnsureDirectory(ctx); err != nil {
		return fmt.Errorf("failed to prepare destination directory: %w", err)
	}
	return nil
}

func (p *Pipeline) transferOne(ctx context.Context, logger *zap.Logger, dir *scratch.Dir, i, total int, item Item) Outcome {
	out := Outcome{Key: item.Key, Object: item.Object}
	logger = logger.With(zap.String("key", item.Key), zap.Int("index", i+1), zap.Int("total", total))

	fail := func(err error) Outcome {
		out.Err = err
		logger.Error("File transfer failed", zap.Error(err))
		p.emit(Event{State: StateTransferring, Index: i + 1, Total: total, Key: item.Key, Err: err})
		return out
	}
	done := func(stage Stage) {
		out.Stages = append(out.Stages, stage)
		p.emit(Event{State: StateTransferring, Stage: stage, Index: i + 1, Total: total, Key: item.Key})
	}

	if !item.Found {
		return fail(xfererr.Newf(xfererr.KindNotFound, "select", "%s is not in the bucket listing", item.Key))
	}

	sub, err := dir.Sub(fmt.Sprintf("%04d", i+1))
	if err != nil {
		return fail(fmt.Errorf("failed to create staging directory: %w", err))
	}

	local, err := p.source.Fetch(ctx, item.Object, sub)
	if err != nil {
		return fail(err)
	}
	done(StageFetched)

	if p.opts.Convert {
		kind, ok := convert.KindFromPath(local)
		if ok && kind != convert.KindParquet {
			converted, err := p.converter.Convert(local, kind)
			if err != nil {
				return fail(err)
			}
			local = converted
			out.Converted = true
			done(StageConverted)
		}
	}

	remote, err := p.dest.Upload(ctx, local)
	if err != nil {
		return fail(err)
	}
	out.RemotePath = remote
	done(StageUploaded)

	if p.opts.Verify {
		p.verify(ctx, logger, &out, local, remote)
		done(StageVerified)
	}

	logger.Info("File transferred",
		zap.String("remote", remote),
		zap.Bool("converted", out.Converted),
		zap.String("checksum", string(out.Checksum)))
	return out
}

// verify compares local and remote digests. The result only annotates the
// outcome; the upload stands either way.
func (p *Pipeline) verify(ctx context.Context, logger *zap.Logger, out *Outcome, local, remote string) {
	algo := p.opts.ChecksumAlgorithm
	if algo == "" {
		algo = checksum.MD5
	}

	localSum, err := checksum.Digest(local, algo)
	if err != nil {
		out.Checksum = ChecksumUnavailable
		out.ChecksumErr = err
		logger.Warn("Could not compute local checksum", zap.Error(err))
		return
	}
	remoteSum, err := p.dest.RemoteDigest(ctx, remote, algo)
	if err != nil {
		out.Checksum = ChecksumUnavailable
		out.ChecksumErr = err
		logger.Warn("Could not compute remote checksum", zap.Error(err))
		return
	}

	out.LocalDigest = localSum
	out.RemoteDigest = remoteSum
	if checksum.Verify(localSum, remoteSum) {
		out.Checksum = ChecksumMatch
		return
	}

	out.Checksum = ChecksumMismatch
	out.ChecksumErr = xfererr.Newf(xfererr.KindChecksumMismatch, "verify "+remote,
		"%s digest %s does not match remote %s", algo, localSum, remoteSum)
	logger.Warn("Checksum mismatch",
		zap.String("algorithm", string(algo)),
		zap.String("local", localSum),
		zap.String("remote", remoteSum))
}

func (p *Pipeline) transition(s State) {
	p.state = s
	p.emit(Event{State: s})
}

func (p *Pipeline) emit(e Event) {
	if p.opts.Progress != nil {
		p.opts.Progress(e)
	}
}
