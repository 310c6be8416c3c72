package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/labdash/internal/config"
	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/spf13/cobra"
)

// init command flags
var (
	initForce          bool
	initNonInteractive bool
	initPanelsFlag     string
	initGPUsFlag       int
	initLocalFlag      bool
	initOutputFlag     string
)

// initCmd writes a starter labdash.yaml
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a labdash.yaml configuration",
	Long: `Write a labdash.yaml describing the machines to show.

Interactive by default. With --non-interactive the flags and defaults are
used as-is, which suits provisioning scripts.

Each panel gets a GPU listener and a host listener. GPU ports start at
12345, host ports follow the GPU ports, so the stock two-panel lab uses
12345-12346 for GPUs and 12347-12348 for hosts.

Examples:
  labdash init
  labdash init --non-interactive --panels Beast,Beauty --gpus 2
  labdash init --non-interactive --panels Kiosk --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			Path:           initOutputFlag,
			Panels:         splitPanels(initPanelsFlag),
			GPUs:           initGPUsFlag,
			Local:          initLocalFlag,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive,
			Out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use flags and defaults")
	initCmd.Flags().StringVar(&initPanelsFlag, "panels", "Beast,Beauty", "comma-separated panel names")
	initCmd.Flags().IntVar(&initGPUsFlag, "gpus", 2, "GPUs per machine")
	initCmd.Flags().BoolVar(&initLocalFlag, "local", false, "query this machine directly instead of listening")
	initCmd.Flags().StringVarP(&initOutputFlag, "output", "o", config.ConfigFileName, "where to write the config")

	rootCmd.AddCommand(initCmd)
}

// First ports handed out by init.
const basePort = 12345

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string
	Title          string
	Panels         []string
	GPUs           int
	Local          bool // query the local machine instead of listening
	Mirror         bool
	Overwrite      bool // overwrite an existing file without asking
	NonInteractive bool
	Out            io.Writer
}

// Init writes a new configuration file.
func Init(opts InitOptions) error {
	if opts.Path == "" {
		opts.Path = config.ConfigFileName
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if _, err := os.Stat(opts.Path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", opts.Path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", opts.Path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(opts.Out, "Cancelled.")
			return nil
		}
	}

	if !opts.NonInteractive {
		if err := promptInitOptions(&opts); err != nil {
			return err
		}
	}

	cfg, err := buildInitConfig(opts)
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	header := `# labdash configuration
# Run 'labdash' to start the dashboard, and 'labdash send' on each machine.

`
	if err := os.WriteFile(opts.Path, []byte(header+string(data)), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", opts.Path),
			"Check directory permissions")
	}

	fmt.Fprintf(opts.Out, "Created %s\n\n", opts.Path)
	fmt.Fprintln(opts.Out, "Next steps:")
	fmt.Fprintln(opts.Out, "  labdash                                  - Start the dashboard")
	if !opts.Local {
		for _, p := range cfg.Panels {
			fmt.Fprintf(opts.Out, "  labdash send --kind gpu --to <this-host>:%d   - on %s\n", p.GPU.Port, p.Name)
			fmt.Fprintf(opts.Out, "  labdash send --kind host --to <this-host>:%d  - on %s\n", p.Host.Port, p.Name)
		}
	}
	return nil
}

// promptInitOptions fills opts interactively, starting from its values.
func promptInitOptions(opts *InitOptions) error {
	title := opts.Title
	if title == "" {
		title = config.DefaultTitle
	}
	panels := strings.Join(opts.Panels, ",")
	gpus := strconv.Itoa(max(opts.GPUs, 1))
	mode := config.ModeListen
	if opts.Local {
		mode = config.ModeLocal
	}
	mirror := opts.Mirror

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Welcome title").
				Description("Scrolls across the top of the screen").
				Value(&title),
			huh.NewInput().
				Title("Machines").
				Description("Comma-separated panel names, one column each").
				Placeholder("Beast,Beauty").
				Value(&panels).
				Validate(func(s string) error {
					if len(splitPanels(s)) == 0 {
						return fmt.Errorf("at least one machine is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("GPUs per machine").
				Value(&gpus).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of at least 1")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do readings come from?").
				Options(
					huh.NewOption("Machines push them over UDP (labdash send)", config.ModeListen),
					huh.NewOption("This machine, queried directly", config.ModeLocal),
				).
				Value(&mode),
			huh.NewConfirm().
				Title("Serve a read-only web mirror?").
				Value(&mirror),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}

	opts.Title = strings.TrimSpace(title)
	opts.Panels = splitPanels(panels)
	opts.GPUs, _ = strconv.Atoi(strings.TrimSpace(gpus))
	opts.Local = mode == config.ModeLocal
	opts.Mirror = mirror
	return nil
}

// buildInitConfig lays out one panel per name with GPU ports first and
// host ports after them.
func buildInitConfig(opts InitOptions) (*config.Config, error) {
	if len(opts.Panels) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No machines given",
			"Pass --panels with at least one name")
	}

	cfg := config.DefaultConfig()
	if opts.Title != "" {
		cfg.Title = opts.Title
	}
	cfg.Mirror.Enabled = opts.Mirror

	mode := config.ModeListen
	if opts.Local {
		mode = config.ModeLocal
	}
	gpus := max(opts.GPUs, 1)
	n := len(opts.Panels)

	cfg.Panels = make([]config.PanelConfig, n)
	for i, name := range opts.Panels {
		gpu := &config.SourceConfig{Mode: mode, GPUs: gpus}
		host := &config.SourceConfig{Mode: mode, TopProcesses: config.DefaultTopProcesses}
		if mode == config.ModeListen {
			gpu.Port = basePort + i
			host.Port = basePort + n + i
		}
		cfg.Panels[i] = config.PanelConfig{Name: name, Host: host, GPU: gpu}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitPanels parses a comma-separated list of names, dropping blanks.
func splitPanels(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
