package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prizedesk/internal/api"
	"prizedesk/internal/config"
	"prizedesk/internal/logging"
	"prizedesk/internal/settings"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	workspace  string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg         *config.Config
	settingsMgr *settings.Manager
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prizedesk",
	Short: "prizedesk - prize winner verification desk",
	Long: `prizedesk is the operator console for verifying competition winners,
publishing their prizes and handing pending cases over between shifts.

Run without arguments to start the interactive shell.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
		logging.CloseAudit()
	},
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .prizedesk/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API root (or set PRIZEDESK_API_URL)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout for one-shot commands")

	rootCmd.AddCommand(verificationsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup builds the logger, loads .env, config and settings, and starts file
// logging and the audit log.
func setup(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("ignoring .env", zap.Error(err))
	}

	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = filepath.Join(ws, config.DefaultDir, "config.yaml")
	}
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(ws, cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("config loaded from %s, api %s", path, cfg.API.BaseURL)

	sp := cfg.SettingsPath()
	if !filepath.IsAbs(sp) {
		sp = filepath.Join(ws, sp)
	}
	settingsMgr = settings.NewManager(sp)
	if err := settingsMgr.Load(); err != nil {
		logger.Warn(settings.MsgLoadFailed, zap.Error(err))
	}
	if err := settings.Apply(settingsMgr.Get(), ws); err != nil {
		logger.Warn("audit log unavailable", zap.Error(err))
	}

	logger.Debug("setup complete",
		zap.String("workspace", ws),
		zap.String("api", cfg.API.BaseURL),
		zap.String("settings", sp))
	return nil
}

func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return cwd, nil
}

func newClient() *api.Client {
	return api.New(cfg.API.BaseURL, api.WithTimeout(cfg.GetAPITimeout()))
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
