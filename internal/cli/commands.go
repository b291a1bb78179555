package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/paceline/internal/adapters/profile"
	"github.com/okian/paceline/internal/domain/timecodec"
	"github.com/okian/paceline/internal/domain/types"
)

func fmtFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func newEventsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the supported events",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			events := e.svc.Events()
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				rows = append(rows, []string{ev.Name, fmtFloat(ev.DistanceMeters, 2), ev.Format})
			}
			return e.out.render([]string{"Event", "Distance (m)", "Format"}, rows, events)
		},
	}
}

func newScoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "score Event=time...",
		Short:   "Score performances against the WA table",
		Example: `  paceline score --table wa.csv "1500 Metres=4:05.3" "5000 Metres=15:10"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := e.session(ctx, args)
			if err != nil {
				return err
			}
			rep, err := e.svc.Scores(ctx, id)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(rep.Scored))
			for _, s := range rep.Scored {
				points := timecodec.Placeholder
				if s.OK {
					points = fmtFloat(s.Points, 0)
				}
				rows = append(rows, []string{s.Observation.Event, s.Observation.Formatted(), points, s.Reason})
			}
			if err := e.out.render([]string{"Event", "Time", "Points", "Note"}, rows, rep); err != nil {
				return err
			}
			if rep.Summary != nil {
				e.out.note(fmt.Sprintf("best %s (%s), worst %s (%s), mean %s over %d",
					fmtFloat(rep.Summary.Best.Points, 0), rep.Summary.Best.Observation.Event,
					fmtFloat(rep.Summary.Worst.Points, 0), rep.Summary.Worst.Observation.Event,
					fmtFloat(rep.Summary.Mean, 1), rep.Summary.Count))
			}
			return nil
		},
	}
}

func newCriticalSpeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "cs Event=time...",
		Aliases: []string{"critical-speed"},
		Short:   "Fit critical speed and D' by least squares",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := e.session(ctx, args)
			if err != nil {
				return err
			}
			cs, err := e.svc.CriticalSpeed(ctx, id, nil)
			if err != nil {
				return err
			}
			rows := [][]string{{
				fmtFloat(cs.CS, 3),
				fmtFloat(cs.DPrime, 1),
				cs.Pace,
				fmtFloat(cs.RSquared, 4),
				strconv.Itoa(cs.Points),
			}}
			return e.out.render([]string{"CS (m/s)", "D' (m)", "Pace", "R²", "Points"}, rows, cs)
		},
	}
}

func newRiegelCmd(e *env) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:     "riegel EventA=time EventB=time --target Event",
		Short:   "Extrapolate a time with the Riegel model",
		Example: `  paceline riegel "1500 Metres=4:05" "5000 Metres=15:10" --target Marathon`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := parseObservations(args)
			if err != nil {
				return err
			}
			id, err := e.session(ctx, args)
			if err != nil {
				return err
			}
			rv, err := e.svc.Riegel(ctx, id, types.RiegelRequest{EventA: in[0].Event, EventB: in[1].Event, Target: target})
			if err != nil {
				return err
			}
			rows := [][]string{{rv.TargetEvent, rv.Formatted, fmtFloat(rv.K, 3), rv.Reference.Event}}
			return e.out.render([]string{"Target", "Predicted", "k", "Reference"}, rows, rv)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target event")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newPredictCmd(e *env) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "predict Event=time... --target Event",
		Short: "Predict a time from the mean WA points of up to max_selected events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := parseObservations(args)
			if err != nil {
				return err
			}
			id, err := e.session(ctx, args)
			if err != nil {
				return err
			}
			events := make([]string, 0, len(in))
			for _, i := range in {
				events = append(events, i.Event)
			}
			p, err := e.svc.Predict(ctx, id, events, target)
			if err != nil {
				return err
			}
			rows := [][]string{{p.Event, p.Formatted, fmtFloat(p.MeanPoints, 1), fmtFloat(p.TierPoints, 0)}}
			return e.out.render([]string{"Target", "Predicted", "Mean points", "Tier"}, rows, p)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target event")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newReportCmd(e *env) *cobra.Command {
	var (
		req    types.ReportRequest
		target string
	)
	cmd := &cobra.Command{
		Use:   "report Event=time...",
		Short: "Summarize performances, models and scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := parseObservations(args)
			if err != nil {
				return err
			}
			id, err := e.session(ctx, args)
			if err != nil {
				return err
			}
			if target != "" {
				if len(in) < 2 {
					return errors.New("--riegel-target needs two performances")
				}
				req.Riegel = &types.RiegelRequest{EventA: in[0].Event, EventB: in[1].Event, Target: target}
			}
			rep, err := e.svc.Report(ctx, id, req)
			if err != nil {
				return err
			}
			return e.out.render([]string{"Field", "Value"}, reportRows(rep), rep)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Runner name")
	cmd.Flags().IntVar(&req.Age, "age", 0, "Runner age")
	cmd.Flags().StringVar(&target, "riegel-target", "", "Add a Riegel prediction from the first two performances")
	return cmd
}

func reportRows(rep types.Report) [][]string {
	rows := [][]string{
		{"Name", rep.Name},
		{"Age", strconv.Itoa(rep.Age)},
		{"Gender", string(rep.Gender)},
	}
	for _, o := range rep.Observations {
		rows = append(rows, []string{o.Event, o.Formatted})
	}
	if cs := rep.CriticalSpeed; cs != nil {
		rows = append(rows,
			[]string{"Critical speed", fmtFloat(cs.CS, 3) + " m/s (" + cs.Pace + ")"},
			[]string{"D'", fmtFloat(cs.DPrime, 1) + " m"},
		)
	}
	if rv := rep.Riegel; rv != nil {
		rows = append(rows, []string{"Riegel " + rv.TargetEvent, rv.Formatted + " (k=" + fmtFloat(rv.K, 3) + ")"})
	}
	for _, s := range rep.Scores {
		if s.OK {
			rows = append(rows, []string{"Points " + s.Observation.Event, fmtFloat(s.Points, 0)})
		}
	}
	if rep.Summary != nil {
		rows = append(rows, []string{"Mean points", fmtFloat(rep.Summary.Mean, 1)})
	}
	return rows
}

func newProfileCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "profile URL",
		Short: "List personal bests from a World Athletics profile page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := profile.NewClient(profile.WithTimeout(e.cfg.ProfileTimeout()))
			pbs, err := client.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !all {
				pbs = profile.Filter(pbs)
			}
			rows := make([][]string, 0, len(pbs))
			for _, pb := range pbs {
				score := ""
				if pb.Score > 0 {
					score = fmtFloat(pb.Score, 0)
				}
				rows = append(rows, []string{pb.Discipline, pb.Performance, pb.Date, score})
			}
			return e.out.render([]string{"Discipline", "Performance", "Date", "Score"}, rows, pbs)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include events outside the catalog")
	return cmd
}
