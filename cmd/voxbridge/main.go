package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"voxbridge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "voxbridge",
	Short: "Capture speech, recognize it remotely and speak text back",
	Long: `voxbridge records the microphone into a 16-bit PCM buffer, sends the
finished buffer to a cloud recognizer and plays synthesized speech.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("provider", "", "Recognition provider: google or deepgram")
	rootCmd.PersistentFlags().String("language", "", "BCP-47 language code, e.g. en-US")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("rules", "", "Substitution rules file")

	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("language"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("rules_file", rootCmd.PersistentFlags().Lookup("rules"))

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(transcribeCmd)
}

func initConfig() {
	viper.SetEnvPrefix("voxbridge")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the environment configuration and applies flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	applyOverrides(&cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if v := strings.TrimSpace(viper.GetString("provider")); v != "" {
		cfg.Provider = config.Provider(strings.ToLower(v))
	}
	if v := strings.TrimSpace(viper.GetString("language")); v != "" {
		cfg.Language = v
	}
	if v := strings.TrimSpace(viper.GetString("log_level")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(viper.GetString("rules_file")); v != "" {
		cfg.Rules.Path = v
	}
	cfg.Normalize()
}
