package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/agent"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/controller"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/observability"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/planner"
)

const defaultStartURL = "https://example.com"

type runOptions struct {
	url   string
	task  string
	hints string
}

// flagKeys maps run flags to the config keys they override.
var flagKeys = map[string]string{
	"max-steps":    "agent.max_steps",
	"variant":      "agent.variant",
	"vision":       "agent.use_vision",
	"history-out":  "agent.history_path",
	"plan":         "agent.plan",
	"monitor":      "monitor.enabled",
	"monitor-mode": "monitor.mode",
	"driver":       "browser.driver",
	"headless":     "browser.headless",
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent on one task",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), v, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "", "start URL (prompted when empty)")
	f.StringVar(&opts.task, "task", "", "task for the agent (prompted when empty)")
	f.StringVar(&opts.hints, "hints", "", "extra hints appended to the site hints")
	f.Int("max-steps", 100, "maximum number of agent steps")
	f.String("variant", "v2", "protocol variant: v1, v2 or v3")
	f.Bool("vision", true, "send screenshots to the models")
	f.String("history-out", "", "write the run history as JSON to this path")
	f.Bool("plan", false, "draft a plan before the first step")
	f.Bool("monitor", false, "audit the agent with the monitor model")
	f.String("monitor-mode", config.MonitorModeAlternate, "monitor scheduling: alternate or parallel")
	f.String("driver", config.DriverPlaywright, "browser driver: playwright or chromedp")
	f.Bool("headless", false, "run the browser headless")
	return cmd
}

func runAgent(ctx context.Context, v *viper.Viper, opts runOptions, in io.Reader, out io.Writer) error {
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	observability.InitializeLogger(cfg.Logger)
	defer observability.Sync()
	logger := observability.GetLogger()

	reader := bufio.NewReader(in)
	if opts.url == "" {
		opts.url = prompt(reader, out, fmt.Sprintf("Start URL (empty = %s): ", defaultStartURL))
		if opts.url == "" {
			opts.url = defaultStartURL
		}
	}
	if opts.task == "" {
		opts.task = prompt(reader, out, "Describe the task for the agent:\n> ")
		if opts.task == "" {
			return fmt.Errorf("empty task, nothing to do")
		}
	}

	variant, err := llm.ParseVariant(cfg.Agent.Variant)
	if err != nil {
		return err
	}

	driver, err := browser.NewDriver(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	if err := driver.Navigate(ctx, opts.url); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", opts.url, err)
	}

	registry := controller.NewDefaultRegistry()
	env := controller.NewEnvironment(registry, driver, controller.DefaultClipboard(), browser.SnapshotOptions{
		Screenshot:        cfg.Agent.UseVision || (cfg.Monitor.Enabled && cfg.Monitor.UseVision),
		IncludeAttributes: cfg.Agent.IncludeAttributes,
	}, logger)

	agentClient, err := llm.NewClient(ctx, cfg.LLM.Agent, logger.Named("agent-llm"))
	if err != nil {
		return fmt.Errorf("failed to create agent model client: %w", err)
	}

	a := agent.New(agent.Config{
		Variant:           variant,
		MaxSteps:          cfg.Agent.MaxSteps,
		MaxActionsPerStep: cfg.Agent.MaxActionsPerStep,
		MaxFailures:       cfg.Agent.MaxFailures,
		MaxErrorLength:    cfg.Agent.MaxErrorLength,
		UseVision:         cfg.Agent.UseVision,
		IncludeAttributes: cfg.Agent.IncludeAttributes,
		LoopThreshold:     cfg.Agent.LoopThreshold,
	}, env, agentClient, registry, opts.task, agent.BuildHints(opts.url, opts.hints), logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	signals := agent.NewSignalController(cancel)
	defer signals.Close()

	coordOpts := []agent.Option{agent.WithStopSignal(signals)}
	if cfg.Monitor.Enabled {
		monitorClient, err := llm.NewClient(ctx, cfg.LLM.Monitor, logger.Named("monitor-llm"))
		if err != nil {
			return fmt.Errorf("failed to create monitor model client: %w", err)
		}
		coordOpts = append(coordOpts, agent.WithMonitor(agent.NewMonitor(monitorClient, llm.MonitorPrompt{
			IncludeAttributes: cfg.Agent.IncludeAttributes,
			UseVision:         cfg.Monitor.UseVision,
			MaxErrorLength:    cfg.Agent.MaxErrorLength,
		}, logger)))
	}
	if cfg.Agent.Plan {
		coordOpts = append(coordOpts, agent.WithPlanner(planner.New(agentClient, logger)))
	}
	var summarizer llm.Client
	if cfg.Agent.Summarize {
		summarizer = agentClient
	}
	coordOpts = append(coordOpts, agent.WithReporter(agent.NewReporter(summarizer, logger)))

	coord := agent.NewCoordinator(agent.CoordinatorConfig{
		Mode:             cfg.Monitor.Mode,
		MonitorEvery:     cfg.Monitor.EveryNSteps,
		FeedAudit:        cfg.Monitor.FeedAudit,
		TrustMonitorDone: cfg.Monitor.TrustDone,
		ModelRetries:     cfg.Agent.ModelRetries,
		HistoryPath:      cfg.Agent.HistoryPath,
	}, a, env, logger, coordOpts...)

	res, runErr := coord.Run(runCtx)
	printResult(out, res)
	return runErr
}

func prompt(reader *bufio.Reader, out io.Writer, question string) string {
	fmt.Fprint(out, question)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func printResult(out io.Writer, res *agent.RunResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(out, "\nRun %s finished: %s after %d steps (%s)\n", res.RunID, res.Status, res.State.StepNumber, res.Duration.Round(time.Millisecond))
	if res.FinalContent != "" {
		fmt.Fprintf(out, "Result:\n%s\n", res.FinalContent)
	}
	if res.Summary != "" {
		fmt.Fprintf(out, "Summary:\n%s\n", res.Summary)
	}
}
