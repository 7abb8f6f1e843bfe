package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var replayRealtime bool

var replayCmd = &cobra.Command{
	Use:   "replay <frames.jsonl>",
	Short: "Run recorded landmark frames through the gesture session",
	Long: `Replay reads one frame per line in the landmark helper's JSON format,
optionally with a "timestamp_ms" field, feeds the frames through the gesture
session without a camera and prints the effect and label counts as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "pace frames by their timestamps")
	replayCmd.Flags().String("mode", string(session.ModeGrab), "effect mode: grab, paint or cursor")

	rootCmd.AddCommand(replayCmd)
}

func bindReplayFlags(v *viper.Viper) {
	if replayCmd.Flags().Changed("mode") {
		_ = v.BindPFlag("session.mode", replayCmd.Flags().Lookup("mode"))
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Pipeline.Enabled = false
	cfg.Ingest.Enabled = false

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	a, err := app.New(app.Config{
		Settings: cfg,
		Camera:   capture.NewUnavailableCamera("replay"),
		Detector: detector.NewMockDetector(),
	})
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Stop()

	stats, err := a.Replay(cmd.Context(), f, replayRealtime)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
