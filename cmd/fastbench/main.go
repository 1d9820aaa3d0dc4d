package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcalabro/fastset"
)

var rootCmd = cobra.Command{
	Use:   "fastbench",
	Short: "Load, verify and race fastset sets",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
		level := slog.LevelInfo
		if viper.GetBool(ConfLogVerbose) {
			level = slog.LevelDebug
		}
		if viper.GetBool(ConfLogJSON) {
			log = fastset.NewJSONLogger(level)
		} else {
			log = fastset.NewTextLogger(level)
		}
		return nil
	},
}

var configFile string
var log *fastset.Logger

func init() {
	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	persistentFlags.BoolP("verbose", "v", false, "Debug logging")
	persistentFlags.Bool("json", false, "JSON log output")
	_ = viper.BindPFlag(ConfLogVerbose, persistentFlags.Lookup("verbose"))
	_ = viper.BindPFlag(ConfLogJSON, persistentFlags.Lookup("json"))

	viper.SetEnvPrefix("FASTBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
