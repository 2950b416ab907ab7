package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bendalab/audioio/backend"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log zerolog.Logger

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "audioio",
	Short: "Convert, inspect and play audio files",
	Long: `audioio converts, inspects and plays audio files.

Audio files are read and written through backends of different
capabilities. Run

$ audioio modules

to see which backends are compiled in and available on this machine.
`,
	PersistentPreRunE: setup,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.audioio.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print debug messages")
	rootCmd.PersistentFlags().StringP("backend", "b", "", "use only this audio backend")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".audioio")
		}
	}
	viper.SetEnvPrefix("audioio")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

func setup(cmd *cobra.Command, args []string) error {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	if name := viper.GetString("backend"); name != "" {
		if err := backend.Select(name); err != nil {
			return err
		}
		log.Debug().Str("backend", name).Msg("backend selected")
	}
	return nil
}
