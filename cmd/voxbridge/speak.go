package main

import (
	"strings"

	"github.com/spf13/cobra"

	"voxbridge/internal/bootstrap"
)

var speakCmd = &cobra.Command{
	Use:   "speak <text...>",
	Short: "Synthesize text and play it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSpeak,
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sink := &logSink{}
	services, err := bootstrap.BuildWithConfig(cfg, sink, nil)
	if err != nil {
		return err
	}
	sink.logger = services.Logger

	if err := services.Speaker.Speak(cmd.Context(), strings.Join(args, " "), cfg.Language); err != nil {
		return err
	}
	services.Player.Wait()
	return nil
}
