package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rileyhilliard/labdash/internal/config"
	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/spf13/cobra"
)

// send command flags
var (
	sendKindFlag     string
	sendToFlag       string
	sendIntervalFlag time.Duration
	sendGPUsFlag     int
	sendTopFlag      int
	sendCountFlag    int
	sendVerboseFlag  bool
)

// sendCmd is the remote half of the protocol: it reads this machine's
// metrics and pushes them to the dashboard.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Push this machine's telemetry to a dashboard",
	Long: `Query the local machine and send one telemetry datagram to the dashboard
every interval.

GPU readings come from nvidia-smi; host readings (CPU, RAM and the busiest
processes) come from the operating system. A failed reading is skipped, the
dashboard records it as a timeout.

Examples:
  labdash send --kind gpu --to kiosk:12345 --gpus 2
  labdash send --kind host --to kiosk:12347 --top 10
  labdash send --kind host --to kiosk:12347 --count 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(sendKindFlag)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := io.Discard
		if sendVerboseFlag {
			out = cmd.OutOrStdout()
		}
		return Send(ctx, SendOptions{
			Kind:     kind,
			To:       sendToFlag,
			Interval: sendIntervalFlag,
			GPUs:     sendGPUsFlag,
			Top:      sendTopFlag,
			Count:    sendCountFlag,
			Out:      out,
		})
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendKindFlag, "kind", "gpu", "what to send: gpu or host")
	sendCmd.Flags().StringVar(&sendToFlag, "to", "", "dashboard address, host:port")
	sendCmd.Flags().DurationVar(&sendIntervalFlag, "interval", config.DefaultPollInterval, "pause between datagrams")
	sendCmd.Flags().IntVar(&sendGPUsFlag, "gpus", 1, "number of GPUs to report")
	sendCmd.Flags().IntVar(&sendTopFlag, "top", config.DefaultTopProcesses, "processes to include in host datagrams")
	sendCmd.Flags().IntVar(&sendCountFlag, "count", 0, "stop after this many datagrams (0 = run until interrupted)")
	sendCmd.Flags().BoolVarP(&sendVerboseFlag, "verbose", "v", false, "print every datagram sent")
	_ = sendCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(sendCmd)
}

// SendOptions configures Send.
type SendOptions struct {
	Kind     telemetry.Kind
	To       string
	Interval time.Duration
	GPUs     int
	Top      int
	// Count stops after this many cycles; zero runs until ctx ends.
	Count int

	// Source overrides the local query, for tests.
	Source telemetry.SampleSource
	Out    io.Writer
	// Logger defaults to the package default logger.
	Logger logger.Logger
}

// Send acquires a reading and writes it as one datagram per cycle until ctx
// ends or Count cycles have run. Acquisition and encoding failures skip the
// cycle; only failing to reach the destination socket is fatal.
func Send(ctx context.Context, opts SendOptions) error {
	if opts.Interval < 0 {
		opts.Interval = config.DefaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Source == nil {
		opts.Source = localSource(opts)
	}

	conn, err := net.Dial("udp", opts.To)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTelemetry,
			"Cannot send to "+opts.To,
			"Use host:port of a dashboard listener, e.g. kiosk:12345")
	}
	defer conn.Close()

	for sent := 0; opts.Count == 0 || sent < opts.Count; sent++ {
		if ctx.Err() != nil {
			return nil
		}

		if err := sendOnce(ctx, conn, opts); err != nil {
			opts.Logger.Warn("skipping %s reading: %v", opts.Kind, err)
		}

		if opts.Count != 0 && sent == opts.Count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.Interval):
		}
	}
	return nil
}

func sendOnce(ctx context.Context, conn net.Conn, opts SendOptions) error {
	reading, err := opts.Source.Acquire(ctx)
	if err != nil {
		return err
	}
	data, err := telemetry.EncodePayload(opts.Kind, reading)
	if err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return err
	}
	fmt.Fprintf(opts.Out, "%s -> %s %s\n", opts.Kind, opts.To, data)
	return nil
}

func localSource(opts SendOptions) telemetry.SampleSource {
	if opts.Kind == telemetry.KindHost {
		return telemetry.NewLocalHostSource(opts.Top, telemetry.DefaultQueryTimeout)
	}
	return telemetry.NewLocalGPUSource(max(opts.GPUs, 1), telemetry.DefaultQueryTimeout)
}

// parseKind maps the --kind flag to a telemetry kind.
func parseKind(s string) (telemetry.Kind, error) {
	switch s {
	case "gpu":
		return telemetry.KindGPU, nil
	case "host":
		return telemetry.KindHost, nil
	default:
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown kind: %q", s),
			"Use --kind gpu or --kind host")
	}
}
