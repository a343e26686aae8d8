package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxbridge/internal/bootstrap"
	"voxbridge/internal/domain"
	"voxbridge/internal/pcm"
	"voxbridge/internal/usecase"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Recognize a 16-bit mono WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

func init() {
	transcribeCmd.Flags().Bool("json", false, "Print the full recognition result as JSON")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	audio, rate, err := pcm.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	sink := &logSink{}
	services, err := bootstrap.BuildWithConfig(cfg, sink, nil)
	if err != nil {
		return err
	}
	sink.logger = services.Logger

	result, err := services.Recognizer.Recognize(cmd.Context(), domain.RecognitionRequest{
		Audio:        audio,
		SampleRate:   rate,
		LanguageCode: cfg.Language,
	})
	if err != nil {
		return err
	}

	usecase.FinalizeResult(cmd.Context(), services.Rules, nil, sink, &result)

	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	if result.Transcript == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "No speech recognized.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Transcript)
	return nil
}
