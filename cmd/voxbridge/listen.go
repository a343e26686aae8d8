package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voxbridge/internal/bootstrap"
	"voxbridge/internal/ports"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Record until Enter, Ctrl-C or --duration, then print the transcript",
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func init() {
	listenCmd.Flags().Duration("duration", 0, "Stop automatically after this long")
	listenCmd.Flags().String("save", "", "Also write the captured audio to this WAV file")
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	duration, _ := cmd.Flags().GetDuration("duration")
	savePath, _ := cmd.Flags().GetString("save")

	var opts []bootstrap.Option
	if savePath != "" {
		opts = append(opts, bootstrap.WithRecognizerWrapper(func(next ports.RecognitionGateway) ports.RecognitionGateway {
			return &savingGateway{next: next, path: savePath}
		}))
	}

	sink := &logSink{}
	services, err := bootstrap.BuildWithConfig(cfg, sink, nil, opts...)
	if err != nil {
		return err
	}
	sink.logger = services.Logger

	ctx := cmd.Context()
	if err := services.Session.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Listening. Press Enter to stop.")

	waitForStop(cmd, duration)

	result, err := services.Session.Stop(ctx, cfg.Language)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Nothing captured.")
		return nil
	}
	if result.Transcript == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "No speech recognized.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Transcript)
	return nil
}

func waitForStop(cmd *cobra.Command, duration time.Duration) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		close(enter)
	}()

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-signals:
	case <-enter:
	case <-timeout:
	case <-cmd.Context().Done():
	}
}
