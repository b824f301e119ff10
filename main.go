package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/jobsh/cmd"
	"github.com/smazurov/jobsh/internal/api"
	"github.com/smazurov/jobsh/internal/config"
	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/jobs"
	"github.com/smazurov/jobsh/internal/logging"
	"github.com/smazurov/jobsh/internal/metrics"
	"github.com/smazurov/jobsh/internal/metrics/exporters"
	"github.com/smazurov/jobsh/internal/shell"
)

func main() {
	opts := config.DefaultOptions()
	exitCode := 0

	root := &cobra.Command{
		Use:   "jobsh",
		Short: "A minimal job-control shell",
		Long: `jobsh runs one command per line, in the foreground or, with a trailing &, in the background. ` +
			`Interrupting a foreground job asks before killing it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := cmd.LoadOptions(c, &opts); err != nil {
				return err
			}
			code, err := run(c, opts)
			exitCode = code
			return err
		},
	}
	config.RegisterFlags(root.PersistentFlags(), &opts)
	root.AddCommand(cmd.CreateVersionCmd())
	root.AddCommand(cmd.CreateConfigCmd(&opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jobsh: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func run(c *cobra.Command, opts config.Options) (int, error) {
	killSignal, err := jobs.ParseSignal(opts.KillSignal)
	if err != nil {
		return 2, fmt.Errorf("kill signal: %w", err)
	}

	closeLog, err := logging.Initialize(opts.Logging())
	if err != nil {
		return 2, err
	}
	defer closeLog()

	logger := logging.GetLogger("main")

	// Create event bus for in-process event handling
	eventBus := events.New()
	unbind := metrics.Bind(eventBus)
	defer unbind()

	registry := jobs.NewRegistry()
	sh := shell.New(&shell.Options{
		Interactive:        shell.IsTerminal(os.Stdin),
		Prompt:             opts.Prompt,
		AnnounceAll:        opts.AnnounceAll,
		KillWithoutConfirm: opts.KillWithoutConfirm,
		KillSignal:         killSignal,
		HangupOnExit:       opts.HangupOnExit,
		Registry:           registry,
		Events:             eventBus,
	})

	if opts.DebugAddr != "" {
		server := api.NewServer(&api.Options{
			Jobs:              registry,
			EventBus:          eventBus,
			PrometheusHandler: exporters.HTTPHandler(),
		})
		addr, startErr := server.Start(opts.DebugAddr)
		if startErr != nil {
			logger.Warn("Debug API disabled", "addr", opts.DebugAddr, "error", startErr)
		} else {
			logger.Info("Debug API listening", "addr", addr)
			defer func() {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping debug API", "error", stopErr)
				}
			}()
		}
	}

	if opts.WatchConfig && opts.Config != "" {
		watcher := config.NewConfigWatcher(opts.Config, config.Reloader(c, opts), logging.GetLogger("config"),
			config.WithErrorHandler[config.Options](func(err error) {
				logger.Warn("Keeping previous configuration", "error", err)
			}))
		watcher.OnReload(func(next config.Options) {
			logging.SetLevels(next.Logging())
			sh.Apply(shell.Settings{
				AnnounceAll:        next.AnnounceAll,
				KillWithoutConfirm: next.KillWithoutConfirm,
				HangupOnExit:       next.HangupOnExit,
				Prompt:             next.Prompt,
			})
		})
		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn("Config watching disabled", "path", opts.Config, "error", watchErr)
		} else {
			defer watcher.Stop()
		}
	}

	return sh.Run(context.Background()), nil
}
