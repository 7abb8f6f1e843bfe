// Package cli implements the mudra command line: serve, replay, config and
// version.
package cli

import (
	"fmt"
	"os"

	"github.com/ayusman/mudra/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	cfgFile string
	verbose bool

	// v holds the configuration of the running command. It is rebuilt on
	// every execution so flags bound by one run do not leak into the next.
	v = viper.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Mudra - hand gesture effects",
	Long: `Mudra turns hand landmarks from a webcam or an external tracker into
visual effects: blasting and grabbing shapes in a 3D scene, painting on a
canvas, and driving a cursor.

Run "mudra serve" and open the web page it serves.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mudra %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.mudra/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig points a fresh viper at the config file and MUDRA_* variables
// and binds the command flags that override config keys.
func initConfig() {
	v = viper.New()
	config.Configure(v, cfgFile)
	bindServeFlags(v)
	bindReplayFlags(v)
}

// loadConfig reads the configuration for the current command.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		if used := v.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
		}
	}
	return cfg, nil
}
