package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/config"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imagecodec"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/report"
	"github.com/fiapx/fiapx-frame-extractor/internal/usecase"
	"github.com/fiapx/fiapx-frame-extractor/internal/worker"
	"github.com/fiapx/fiapx-frame-extractor/pkg/logger"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	exitError     = 1
	exitCancelled = 130
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:        "extractor",
		Usage:       "extract frames from a video at fixed intervals",
		Description: entity.AppDescription,
		Version:     entity.AppVersion,
		ArgsUsage:   "VIDEO",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Seconds between sampled frames",
				Value:   entity.DefaultInterval,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Frame image format (png or jpg)",
				Value:   string(entity.DefaultFormat),
			},
			&cli.IntFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "JPEG quality (1-100)",
				Value:   entity.DefaultQuality,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: processed_output next to the video)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "warn",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("expected exactly one VIDEO argument", exitError)
	}
	videoPath := cmd.Args().First()

	cfg, err := config.Load()
	if err != nil {
		return cli.Exit("load config: "+err.Error(), exitError)
	}

	log, err := logger.NewConsole(cmd.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer log.Sync()

	req, err := buildRequest(cmd, cfg, videoPath)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if !entity.IsSupportedVideo(videoPath) {
		log.Warn("unrecognised video extension, trying anyway", zap.String("video", videoPath))
	}

	proc := usecase.NewFrameProcessor(
		ffmpeg.NewSource(cfg.FFmpegBin, cfg.ProbeTimeout, log),
		imagecodec.NewEncoder(),
		report.NewWriter(cfg.ReportFileName),
		log,
		usecase.FrameProcessorConfig{
			OutputDirName:    cfg.OutputDirName,
			FramesDirName:    cfg.FramesDirName,
			CleanupOnFailure: cfg.CleanupOnFailure,
		},
	)
	session := worker.NewSession(proc, log)
	ui := newConsoleUI(os.Stdout)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; !ok {
			return
		}
		ui.cancelling()
		session.Cancel()
		if _, ok := <-sigCh; ok {
			os.Exit(exitCancelled)
		}
	}()

	fmt.Fprintf(os.Stdout, "%s %s\n", entity.AppName, entity.AppVersion)
	session.Start(ctx, req)

	var final worker.Message
	err = worker.Poll(ctx, session.Queue(), cfg.PollInterval, func(m worker.Message) {
		ui.handle(m)
		if m.Terminal() {
			final = m
		}
	})
	session.Wait()
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	return outcome(final)
}

// buildRequest layers explicitly set flags over the configured defaults.
func buildRequest(cmd *cli.Command, cfg *config.Config, videoPath string) (entity.ProcessRequest, error) {
	req := cfg.DefaultRequest(videoPath)
	if cmd.IsSet("interval") {
		req.Interval = int(cmd.Int("interval"))
	}
	if cmd.IsSet("quality") {
		req.Quality = int(cmd.Int("quality"))
	}
	if cmd.IsSet("format") {
		format, err := entity.ParseOutputFormat(cmd.String("format"))
		if err != nil {
			return req, err
		}
		req.Format = format
	}
	req.OutputDir = cmd.String("output")
	return req, req.Validate()
}

// outcome maps the terminal message of a run to the process exit status.
func outcome(m worker.Message) error {
	switch m.Kind {
	case worker.KindResult:
		return nil
	case worker.KindCancelled:
		return cli.Exit("Processing cancelled", exitCancelled)
	case worker.KindError:
		return cli.Exit("Error: "+m.Err.Error(), exitError)
	default:
		return cli.Exit("run ended without a result", exitError)
	}
}
