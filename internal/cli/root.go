// Package cli defines the paceline command line interface. Every command
// runs the analysis service in-process over the performances given as
// "Event=time" arguments.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/paceline/internal/adapters/repository"
	service "github.com/okian/paceline/internal/app"
	"github.com/okian/paceline/internal/config"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/types"
	"github.com/okian/paceline/pkg/logger"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

// flags holds the raw persistent flag values.
type flags struct {
	table    string
	strict   bool
	gender   string
	output   string
	logLevel string
	noColor  bool
}

// env is built once per invocation by the root command.
type env struct {
	flags flags
	cfg   *config.Config
	svc   *service.Service
	out   renderer
	log   logger.Logger
}

// NewRootCmd builds the command tree writing results to out and diagnostics
// to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "paceline",
		Short: "Analyze running performances.",
		Long: `Paceline fits critical speed and Riegel models to your race times and scores
them against World Athletics scoring tables.

Performances are given as "Event=time" arguments, e.g. "1500 Metres=4:05.3".`,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd.Context(), cmd, out, errOut)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.svc != nil {
				e.svc.Stop()
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.table, "table", "", "WA scoring table CSV (overrides score_table_path)")
	pf.BoolVar(&e.flags.strict, "strict", false, "Reject scoring tables whose points rise with time")
	pf.StringVarP(&e.flags.gender, "gender", "g", string(model.Man), "Scoring table gender: Man or Woman")
	pf.StringVarP(&e.flags.output, "output", "o", OutputTable, "Output format: table or json or csv")
	pf.StringVar(&e.flags.logLevel, "log-level", "warn", "Diagnostics level: debug, info, warn, error")
	pf.BoolVar(&e.flags.noColor, "no-color", false, "Disable colored notes")

	root.AddCommand(
		newEventsCmd(e),
		newScoreCmd(e),
		newCriticalSpeedCmd(e),
		newRiegelCmd(e),
		newPredictCmd(e),
		newReportCmd(e),
		newProfileCmd(e),
	)
	return root
}

func (e *env) init(ctx context.Context, cmd *cobra.Command, out, errOut io.Writer) error {
	switch e.flags.output {
	case OutputTable, OutputJSON, OutputCSV:
	default:
		return fmt.Errorf("unknown output %q", e.flags.output)
	}
	e.out = newRenderer(out, e.flags.output, !e.flags.noColor)

	if err := logger.Init(logger.WithWriter(errOut), logger.WithCaller(false)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(e.flags.logLevel); err != nil {
		return err
	}
	e.log = logger.Named("cli")

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if e.flags.table != "" {
		cfg.ScoreTablePath = e.flags.table
	}
	if cmd.Flags().Changed("strict") {
		cfg.StrictScoreTable = e.flags.strict
	}
	e.cfg = cfg

	opts := []service.Option{
		service.WithLogger(e.log),
		service.WithMaxSelected(cfg.MaxSelected),
		service.WithSessionLimit(1),
		service.WithMaxObservations(cfg.MaxObservations),
		service.WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.ScoreTablePath != "" {
		table, rep, err := repository.LoadScoreTableFile(ctx, cfg.ScoreTablePath,
			repository.WithStrict(cfg.StrictScoreTable),
			repository.WithLoadLogger(e.log),
		)
		if err != nil {
			return err
		}
		for _, v := range rep.Violations {
			e.out.note("warning: " + v.String())
		}
		opts = append(opts, service.WithScoreTable(table))
	}

	e.svc = service.New(opts...)
	return e.svc.Start(ctx)
}

// session opens a session for the gender flag and stores the performances
// given as arguments.
func (e *env) session(ctx context.Context, args []string) (string, error) {
	g, err := model.ParseGender(e.flags.gender)
	if err != nil {
		return "", err
	}
	in, err := parseObservations(args)
	if err != nil {
		return "", err
	}
	sess, err := e.svc.CreateSession(ctx, g)
	if err != nil {
		return "", err
	}
	res, err := e.svc.AddObservations(ctx, sess.ID, in)
	if err != nil {
		return "", err
	}
	for _, r := range res.Rejected {
		e.out.note(fmt.Sprintf("skipped %s=%s: %s", r.Event, r.Time, r.Reason))
	}
	return sess.ID, nil
}

// parseObservations reads "Event=time" arguments.
func parseObservations(args []string) ([]types.ObservationInput, error) {
	out := make([]types.ObservationInput, 0, len(args))
	for _, a := range args {
		event, text, ok := strings.Cut(a, "=")
		event, text = strings.TrimSpace(event), strings.TrimSpace(text)
		if !ok || event == "" || text == "" {
			return nil, fmt.Errorf("%q: want Event=time", a)
		}
		out = append(out, types.ObservationInput{Event: event, Time: text})
	}
	return out, nil
}
