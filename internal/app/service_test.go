package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	service "github.com/okian/paceline/internal/app"
	"github.com/okian/paceline/internal/adapters/profile"
	"github.com/okian/paceline/internal/adapters/repository"
	"github.com/okian/paceline/internal/domain/endurance"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/internal/domain/types"
	"github.com/okian/paceline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type stubFetcher struct {
	pbs []profile.PB
	err error
}

func (f stubFetcher) Fetch(context.Context, string) ([]profile.PB, error) {
	return f.pbs, f.err
}

func referenceTable() *scoring.Table {
	return scoring.NewTable([]scoring.Row{
		{Gender: model.Man, Event: "1500 Metres", TimeSeconds: 240, Points: 1000},
		{Gender: model.Man, Event: "1500 Metres", TimeSeconds: 270, Points: 800},
		{Gender: model.Man, Event: "5000 Metres", TimeSeconds: 900, Points: 900},
		{Gender: model.Man, Event: "5000 Metres", TimeSeconds: 1020, Points: 700},
		{Gender: model.Man, Event: "10,000 Metres", TimeSeconds: 1800, Points: 1000},
		{Gender: model.Man, Event: "10,000 Metres", TimeSeconds: 2000, Points: 850},
		{Gender: model.Man, Event: "10,000 Metres", TimeSeconds: 2200, Points: 700},
		{Gender: model.Woman, Event: "1500 Metres", TimeSeconds: 270, Points: 1000},
		{Gender: model.Woman, Event: "1500 Metres", TimeSeconds: 300, Points: 850},
	})
}

func startedService(opts ...service.Option) *service.Service {
	s := service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
	if err := s.Start(context.Background()); err != nil {
		panic(err)
	}
	return s
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		s := service.New(service.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("When creating a session", func() {
			_, err := s.CreateSession(ctx, model.Man)

			Convey("Then it should report that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started twice and stopped twice", func() {
			So(s.Start(ctx), ShouldBeNil)
			So(s.Start(ctx), ShouldBeNil)
			s.Stop()
			s.Stop()

			Convey("Then further calls should fail again", func() {
				_, err := s.GetSession(ctx, "x")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_AddObservations(t *testing.T) {
	Convey("Given a running service with a session", t, func() {
		ctx := context.Background()
		s := startedService()
		sess, err := s.CreateSession(ctx, model.Man)
		So(err, ShouldBeNil)

		Convey("When adding a mix of valid, unparsable and unknown entries", func() {
			res, err := s.AddObservations(ctx, sess.ID, []types.ObservationInput{
				{Event: "1500 Metres", Time: "4:30"},
				{Event: "800 Metres", Time: "fast"},
				{Event: "Long Jump", Time: "7.10"},
				{Event: "1500 Metres", Time: "4:30.00"},
			})

			Convey("Then unknown events should be rejected and repeats counted", func() {
				So(err, ShouldBeNil)
				So(res.Added, ShouldEqual, 2)
				So(res.Duplicates, ShouldEqual, 1)
				So(res.Rejected, ShouldHaveLength, 1)
				So(res.Rejected[0].Reason, ShouldEqual, service.ReasonUnknownEvent)
			})

			Convey("And the stored observations should carry the session gender", func() {
				got, err := s.GetSession(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(got.Observations, ShouldHaveLength, 2)
				So(got.Observations[0].Gender, ShouldEqual, model.Man)
				So(got.Observations[1].HasTime(), ShouldBeFalse)
			})
		})

		Convey("When adding to an unknown session", func() {
			_, err := s.AddObservations(ctx, "missing", []types.ObservationInput{{Event: "Mile", Time: "4:00"}})

			Convey("Then the store error should surface", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service that caps observations per session", t, func() {
		ctx := context.Background()
		s := startedService(service.WithMaxObservations(2))
		sess, _ := s.CreateSession(ctx, model.Woman)

		Convey("When adding more than fit", func() {
			res, err := s.AddObservations(ctx, sess.ID, []types.ObservationInput{
				{Event: "800 Metres", Time: "2:10"},
				{Event: "1500 Metres", Time: "4:30"},
				{Event: "Mile", Time: "4:50"},
			})

			Convey("Then the ones that fit should be kept and the rest rejected", func() {
				So(errors.Is(err, repository.ErrTooMany), ShouldBeTrue)
				So(res.Added, ShouldEqual, 2)
				So(res.Rejected, ShouldHaveLength, 1)
				So(res.Rejected[0].Reason, ShouldEqual, service.ReasonSessionFull)
			})
		})
	})
}

func TestService_ImportProfile(t *testing.T) {
	Convey("Given a service with a profile fetcher", t, func() {
		ctx := context.Background()
		fetcher := stubFetcher{pbs: []profile.PB{
			{Discipline: "1500 Metres", Performance: "4:10.00", Date: "2024-06-01", Score: 1050},
			{Discipline: "Long Jump", Performance: "7.10"},
			{Discipline: "5000 Metres", Performance: "15:00.00"},
		}}
		s := startedService(service.WithProfileClient(fetcher))
		sess, _ := s.CreateSession(ctx, model.Man)

		Convey("When importing a profile", func() {
			res, err := s.ImportProfile(ctx, sess.ID, "https://example.org/athlete")

			Convey("Then catalog events should be stored with their source", func() {
				So(err, ShouldBeNil)
				So(res.Added, ShouldEqual, 2)
				So(res.Rejected, ShouldHaveLength, 1)

				got, _ := s.GetSession(ctx, sess.ID)
				So(got.Observations[0].Source, ShouldEqual, model.SourceWorldAthletics)
				So(got.Observations[0].Date, ShouldEqual, "2024-06-01")
				So(got.Observations[0].Score, ShouldEqual, 1050)
			})
		})
	})

	Convey("Given a fetcher that fails", t, func() {
		ctx := context.Background()
		s := startedService(service.WithProfileClient(stubFetcher{err: profile.ErrStatus}))
		sess, _ := s.CreateSession(ctx, model.Man)

		Convey("When importing", func() {
			_, err := s.ImportProfile(ctx, sess.ID, "https://example.org/athlete")

			Convey("Then the fetch error should be wrapped", func() {
				So(errors.Is(err, profile.ErrStatus), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service without a fetcher", t, func() {
		s := startedService()

		Convey("Then imports should be refused", func() {
			_, err := s.ImportProfile(context.Background(), "any", "https://example.org")
			So(errors.Is(err, service.ErrNoProfileClient), ShouldBeTrue)
		})
	})
}

func TestService_Analyses(t *testing.T) {
	Convey("Given a session with two scorable performances", t, func() {
		ctx := context.Background()
		s := startedService(service.WithScoreTable(referenceTable()))
		sess, _ := s.CreateSession(ctx, model.Man)
		_, err := s.AddObservations(ctx, sess.ID, []types.ObservationInput{
			{Event: "1500 Metres", Time: "4:30"},
			{Event: "5000 Metres", Time: "17:00"},
			{Event: "Mile", Time: "4:50"},
		})
		So(err, ShouldBeNil)

		Convey("When scoring", func() {
			rep, err := s.Scores(ctx, sess.ID)

			Convey("Then each observation should be scored or flagged", func() {
				So(err, ShouldBeNil)
				So(rep.Scored, ShouldHaveLength, 3)
				So(rep.Scored[0].Points, ShouldEqual, 800)
				So(rep.Scored[1].Points, ShouldEqual, 700)
				So(rep.Scored[2].Reason, ShouldEqual, scoring.ReasonNoReference)
				So(rep.Summary, ShouldNotBeNil)
				So(rep.Summary.Mean, ShouldEqual, 750)
			})
		})

		Convey("When fitting critical speed over two events", func() {
			cs, err := s.CriticalSpeed(ctx, sess.ID, []string{"1500 Metres", "5000 Metres"})

			Convey("Then the line through both points should be returned", func() {
				So(err, ShouldBeNil)
				So(cs.CS, ShouldAlmostEqual, 3500.0/750.0, 1e-9)
				So(cs.DPrime, ShouldAlmostEqual, 240, 1e-6)
				So(cs.Pace, ShouldEqual, "3:34/km")
				So(cs.Events, ShouldResemble, []string{"1500 Metres", "5000 Metres"})
			})
		})

		Convey("When fitting critical speed over a single event", func() {
			_, err := s.CriticalSpeed(ctx, sess.ID, []string{"Mile"})

			Convey("Then the fit should be undetermined", func() {
				So(errors.Is(err, endurance.ErrUndetermined), ShouldBeTrue)
			})
		})

		Convey("When extrapolating with Riegel to 10,000 m", func() {
			rv, err := s.Riegel(ctx, sess.ID, types.RiegelRequest{EventA: "1500 Metres", EventB: "5000 Metres", Target: "10,000 Metres"})

			Convey("Then the closer 5000 m should be the reference", func() {
				So(err, ShouldBeNil)
				So(rv.Reference.Event, ShouldEqual, "5000 Metres")
				So(rv.PredictedSeconds, ShouldAlmostEqual, 1020*math.Pow(2, rv.K), 1e-6)
				So(rv.TargetEvent, ShouldEqual, "10,000 Metres")
			})
		})

		Convey("When Riegel names an event with no time", func() {
			_, err := s.Riegel(ctx, sess.ID, types.RiegelRequest{EventA: "800 Metres", EventB: "5000 Metres", Target: "Marathon"})

			Convey("Then the missing time should be reported", func() {
				So(errors.Is(err, service.ErrMissingEventTime), ShouldBeTrue)
			})
		})

		Convey("When predicting a 10,000 m from the scored events", func() {
			p, err := s.Predict(ctx, sess.ID, []string{"1500 Metres", "5000 Metres"}, "10,000 Metres")

			Convey("Then the time of the first tier at or below the mean should be used", func() {
				So(err, ShouldBeNil)
				So(p.MeanPoints, ShouldEqual, 750)
				So(p.TierPoints, ShouldEqual, 700)
				So(p.TimeSeconds, ShouldEqual, 2200)
				So(p.Formatted, ShouldEqual, "36:40.00")
			})

			Convey("And an empty selection should use the best scores", func() {
				q, err := s.Predict(ctx, sess.ID, nil, "10,000 Metres")
				So(err, ShouldBeNil)
				So(q.Basis, ShouldResemble, []string{"1500 Metres", "5000 Metres"})
			})
		})

		Convey("When selecting more events than allowed", func() {
			_, err := s.Predict(ctx, sess.ID, []string{"1500 Metres", "5000 Metres", "Mile", "800 Metres"}, "Marathon")

			Convey("Then the selection should be refused", func() {
				So(errors.Is(err, service.ErrTooManySelected), ShouldBeTrue)
			})
		})

		Convey("When predicting an event without reference rows", func() {
			_, err := s.Predict(ctx, sess.ID, nil, "Marathon")

			Convey("Then no reference should be reported", func() {
				So(errors.Is(err, scoring.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When switching the session to the women's table", func() {
			_, err := s.SetGender(ctx, sess.ID, model.Woman)
			So(err, ShouldBeNil)
			rep, err := s.Scores(ctx, sess.ID)

			Convey("Then the women's rows should apply", func() {
				So(err, ShouldBeNil)
				So(rep.Gender, ShouldEqual, model.Woman)
				So(rep.Scored[0].Points, ShouldEqual, 1000)
			})
		})

		Convey("When building a report", func() {
			rep, err := s.Report(ctx, sess.ID, types.ReportRequest{
				Name:   "Runner",
				Age:    31,
				Riegel: &types.RiegelRequest{EventA: "1500 Metres", EventB: "5000 Metres", Target: "Half Marathon"},
			})

			Convey("Then every section should be present", func() {
				So(err, ShouldBeNil)
				So(rep.Name, ShouldEqual, "Runner")
				So(rep.Observations, ShouldHaveLength, 3)
				So(rep.CriticalSpeed, ShouldNotBeNil)
				So(rep.Riegel, ShouldNotBeNil)
				So(rep.Scores, ShouldHaveLength, 3)
				So(rep.Summary, ShouldNotBeNil)
			})
		})

		Convey("When building a report with a negative age", func() {
			_, err := s.Report(ctx, sess.ID, types.ReportRequest{Age: -1})

			Convey("Then the input should be rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service without a score table", t, func() {
		ctx := context.Background()
		s := startedService()
		sess, _ := s.CreateSession(ctx, model.Man)
		_, _ = s.AddObservations(ctx, sess.ID, []types.ObservationInput{{Event: "Mile", Time: "4:50"}})

		Convey("When scoring", func() {
			_, err := s.Scores(ctx, sess.ID)

			Convey("Then scoring should be unavailable", func() {
				So(errors.Is(err, service.ErrNoScoreTable), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrNotFound), ShouldBeTrue)
				So(s.HasScoreTable(), ShouldBeFalse)
			})
		})

		Convey("When building a report", func() {
			rep, err := s.Report(ctx, sess.ID, types.ReportRequest{Name: "Solo"})

			Convey("Then the model sections should be omitted", func() {
				So(err, ShouldBeNil)
				So(rep.CriticalSpeed, ShouldBeNil)
				So(rep.Summary, ShouldBeNil)
				So(rep.Scores, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Events(t *testing.T) {
	Convey("Given the service", t, func() {
		s := service.New()

		Convey("Then events should mirror the catalog", func() {
			ev := s.Events()
			So(ev, ShouldNotBeEmpty)
			So(ev[0].Name, ShouldEqual, "50 Metres")
			So(ev[0].Format, ShouldEqual, "ss.ss")
		})
	})
}
