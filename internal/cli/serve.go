package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gesture pipeline and the web server",
	Long: `Open the camera (or listen for landmarks from an external tracker when
ingest is enabled), recognize gestures and serve the effects over HTTP and
WebSocket until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.String("static", "", "directory with the web page (default: search ./web and ~/.mudra/web)")
	f.String("db", "", "SQLite database path (default: ~/.mudra/mudra.db)")
	f.String("mode", string(session.ModeGrab), "initial effect mode: grab, paint or cursor")
	f.Bool("ingest", false, "take landmarks from the ZeroMQ ingest socket instead of the camera")
	f.Bool("tray", false, "show the system tray menu")

	rootCmd.AddCommand(serveCmd)
}

func bindServeFlags(v *viper.Viper) {
	f := serveCmd.Flags()
	_ = v.BindPFlag("server.addr", f.Lookup("addr"))
	_ = v.BindPFlag("server.static_dir", f.Lookup("static"))
	_ = v.BindPFlag("store.path", f.Lookup("db"))
	_ = v.BindPFlag("session.mode", f.Lookup("mode"))
	_ = v.BindPFlag("ingest.enabled", f.Lookup("ingest"))
	_ = v.BindPFlag("tray", f.Lookup("tray"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	hub := server.NewHub(server.HubConfig{
		Rate:     cfg.Server.BroadcastRate,
		Burst:    cfg.Server.BroadcastBurst,
		Encoding: cfg.Server.Encoding,
	})

	a, err := app.New(app.Config{Settings: cfg, Store: st, Publisher: hub})
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	hub.SetGreeting(func() any {
		status := a.Status()
		return app.Message{Type: app.MessageStatus, Mode: status.Mode, Status: &status}
	})

	if err := a.LoadPoses(); err != nil {
		log.Printf("Failed to load poses: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Printf("Serving static files from: %s", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		App:       a,
		Frames:    a,
		Hub:       hub,
	})

	log.Printf("Starting server on %s (mode %s)", cfg.Server.Addr, a.Mode())
	if !cfg.Tray {
		return srv.Run(ctx, cfg.Server.Addr)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, cfg.Server.Addr) }()
	runTray(ctx, stop, a, cfg.Server.Addr)
	stop()
	return <-errCh
}

// runTray shows the tray menu on the calling goroutine until the user quits
// or ctx ends.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnMode(a.SetMode)
	t.OnSettings(func() {
		if err := openBrowser(settingsURL(addr)); err != nil {
			log.Printf("Failed to open settings: %v", err)
		}
	})
	t.OnQuit(quit)

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetStatus(a.Status())
			}
		}
	}()

	t.Run()
}

// settingsURL turns a listen address into a browsable URL.
func settingsURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	return c.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dir, err := config.Dir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(dir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
