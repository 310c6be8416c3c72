package cli

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/labdash/internal/config"
	"github.com/rileyhilliard/labdash/internal/dashboard"
	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/mirror"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// mirrorShutdownTimeout bounds how long exit waits for mirror clients.
const mirrorShutdownTimeout = 3 * time.Second

// dashboardCmd is the explicit form of the root command.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the full-screen dashboard (default command)",
	Long: `Bind every configured listener, start one receiver per source and take
over the terminal with the dashboard.

Logs go to the configured log_file while the dashboard runs, since the
screen belongs to the dashboard.

Keyboard shortcuts:
  q / Esc / Ctrl+C  Quit
  ?                 Show help

Examples:
  labdash dashboard
  LABDASH_DEBUG=1 labdash dashboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(configFlag)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

// loadConfig finds, loads and validates the configuration.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dashboardCommand runs the dashboard until the user quits or a signal
// arrives, then shuts every receiver down.
func dashboardCommand(configPath string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrTerminal,
			"labdash needs an interactive terminal",
			"Run it on the kiosk's console, or use 'labdash send' on headless machines")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logPath := cfg.ResolvedLogFile()
	logFile, err := tea.LogToFile(logPath, "labdash")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open log file "+logPath,
			"Set log_file to a writable path")
	}
	defer logFile.Close()

	log := logger.NewEnvLogger("dashboard")

	station, err := telemetry.BuildStation(cfg, logger.NewEnvLogger("telemetry"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	station.Start(ctx)
	defer station.Shutdown()

	if cfg.Mirror.Enabled {
		m := mirror.New(station.Monitors(), mirror.Options{
			PushInterval: cfg.Mirror.PushInterval,
			Logger:       logger.NewEnvLogger("mirror"),
		})
		if _, err := m.Start(cfg.Mirror.Addr); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), mirrorShutdownTimeout)
			defer cancel()
			if err := m.Shutdown(sctx); err != nil {
				log.Warn("mirror shutdown: %v", err)
			}
		}()
	}

	model := dashboard.NewModel(station.Monitors(), dashboard.Options{
		Title:          cfg.Title,
		MarqueeSpeed:   cfg.MarqueeSpeed,
		FrameInterval:  cfg.FrameInterval(),
		RenderInterval: cfg.RenderInterval,
		ProcessRows:    processRows(cfg),
		Logger:         log,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return errors.WrapWithCode(err, errors.ErrTerminal,
			"Dashboard stopped unexpectedly",
			"Check the log file at "+logPath)
	}
	log.Info("dashboard exited")
	return nil
}

// processRows is the longest process table any host panel asks for.
func processRows(cfg *config.Config) int {
	rows := 0
	for _, p := range cfg.Panels {
		if p.Host != nil && p.Host.TopProcesses > rows {
			rows = p.Host.TopProcesses
		}
	}
	if rows == 0 {
		return config.DefaultTopProcesses
	}
	return rows
}
