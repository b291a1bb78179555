package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/paceline/internal/adapters/http/api"
	service "github.com/okian/paceline/internal/app"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newMux(opts ...service.Option) *http.ServeMux {
	svc := service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func createSession(mux *http.ServeMux, gender string) string {
	w := do(mux, http.MethodPost, "/sessions", `{"gender":"`+gender+`"}`)
	So(w.Code, ShouldEqual, http.StatusCreated)
	return decode(w)["id"].(string)
}

func table() *scoring.Table {
	return scoring.NewTable([]scoring.Row{
		{Gender: model.Man, Event: "1500 Metres", TimeSeconds: 240, Points: 1000},
		{Gender: model.Man, Event: "1500 Metres", TimeSeconds: 270, Points: 800},
		{Gender: model.Man, Event: "5000 Metres", TimeSeconds: 900, Points: 900},
		{Gender: model.Man, Event: "5000 Metres", TimeSeconds: 1020, Points: 700},
		{Gender: model.Man, Event: "10,000 Metres", TimeSeconds: 2000, Points: 850},
		{Gender: model.Man, Event: "10,000 Metres", TimeSeconds: 2200, Points: 700},
	})
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("When calling the health endpoint without a score table", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then the service should report itself degraded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["status"], ShouldEqual, "degraded")
			})
		})

		Convey("When listing events", func() {
			w := do(mux, http.MethodGet, "/events", "")

			Convey("Then the catalog should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var events []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &events), ShouldBeNil)
				So(len(events), ShouldBeGreaterThan, 40)
				So(events[0]["name"], ShouldEqual, "50 Metres")
			})
		})

		Convey("When scraping metrics", func() {
			_ = do(mux, http.MethodGet, "/events", "")
			w := do(mux, http.MethodGet, "/metrics", "")

			Convey("Then the custom registry should be exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "paceline_analysis_http_requests_total")
			})
		})

		Convey("When reading stats", func() {
			_ = createSession(mux, "Woman")
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the open session should be counted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["sessions"], ShouldEqual, 1.0)
			})
		})

		Convey("When calling an unknown path", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSessions(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("When creating a session without a body", func() {
			w := do(mux, http.MethodPost, "/sessions", "")

			Convey("Then it should default to the men's table", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(decode(w)["gender"], ShouldEqual, "Man")
			})
		})

		Convey("When creating a session with an unknown gender", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"gender":"robot"}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When sending malformed JSON", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"gender":`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When adding observations to a session", func() {
			id := createSession(mux, "men")
			w := do(mux, http.MethodPost, "/sessions/"+id+"/observations",
				`{"observations":[{"event":"1500 Metres","time":"4:30"},{"event":"Long Jump","time":"7.10"},{"event":"Mile","time":"soon"}]}`)

			Convey("Then valid entries should be stored and unknown ones rejected", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["added"], ShouldEqual, 2.0)
				So(body["rejected"], ShouldHaveLength, 1)
			})

			Convey("And the session should show formatted times", func() {
				g := do(mux, http.MethodGet, "/sessions/"+id, "")
				So(g.Code, ShouldEqual, http.StatusOK)
				obs := decode(g)["observations"].([]any)
				So(obs, ShouldHaveLength, 2)
				first := obs[0].(map[string]any)
				So(first["formatted"], ShouldEqual, "4:30.00")
				So(first["seconds"], ShouldEqual, 270.0)
				second := obs[1].(map[string]any)
				So(second["formatted"], ShouldEqual, "-")
				_, hasSeconds := second["seconds"]
				So(hasSeconds, ShouldBeFalse)
			})
		})

		Convey("When adding an empty list", func() {
			id := createSession(mux, "Man")
			w := do(mux, http.MethodPost, "/sessions/"+id+"/observations", `{"observations":[]}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When switching gender", func() {
			id := createSession(mux, "Man")
			w := do(mux, http.MethodPut, "/sessions/"+id+"/gender", `{"gender":"f"}`)

			Convey("Then the session should be updated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["gender"], ShouldEqual, "Woman")
			})
		})

		Convey("When deleting a session twice", func() {
			id := createSession(mux, "Man")
			first := do(mux, http.MethodDelete, "/sessions/"+id, "")
			second := do(mux, http.MethodDelete, "/sessions/"+id, "")

			Convey("Then the second delete should not find it", func() {
				So(first.Code, ShouldEqual, http.StatusNoContent)
				So(second.Code, ShouldEqual, http.StatusNotFound)
				So(decode(second)["code"], ShouldEqual, "session_not_found")
			})
		})

		Convey("When importing a profile with profile import disabled", func() {
			id := createSession(mux, "Man")
			w := do(mux, http.MethodPost, "/sessions/"+id+"/profile", `{"url":"https://example.org/a"}`)

			Convey("Then it should not be implemented", func() {
				So(w.Code, ShouldEqual, http.StatusNotImplemented)
			})
		})

		Convey("When importing a profile without a url", func() {
			id := createSession(mux, "Man")
			w := do(mux, http.MethodPost, "/sessions/"+id+"/profile", `{}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAnalyses(t *testing.T) {
	Convey("Given a session with two scorable performances", t, func() {
		mux := newMux(service.WithScoreTable(table()))
		id := createSession(mux, "Man")
		w := do(mux, http.MethodPost, "/sessions/"+id+"/observations",
			`{"observations":[{"event":"1500 Metres","time":"4:30"},{"event":"5000 Metres","time":"17:00"}]}`)
		So(w.Code, ShouldEqual, http.StatusOK)

		Convey("When requesting scores", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/scores", "")

			Convey("Then the summary should carry the mean", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["summary"].(map[string]any)["mean"], ShouldEqual, 750.0)
			})
		})

		Convey("When requesting critical speed", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/critical-speed", "")

			Convey("Then the two-point fit should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["cs_mps"], ShouldAlmostEqual, 3500.0/750.0, 1e-9)
				So(body["pace"], ShouldEqual, "3:34/km")
			})
		})

		Convey("When requesting critical speed from one event", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/critical-speed?event=5000+Metres", "")

			Convey("Then the data should be insufficient", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "insufficient_data")
			})
		})

		Convey("When requesting a Riegel prediction", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/riegel?a=1500+Metres&b=5000+Metres&target=Marathon", "")

			Convey("Then an H:MM:SS time should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["formatted"], ShouldContainSubstring, ":")
			})
		})

		Convey("When requesting Riegel with an unknown target", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/riegel?a=1500+Metres&b=5000+Metres&target=Moon", "")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "unknown_event")
			})
		})

		Convey("When predicting a 10,000 m", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/predict?target=10%2C000+Metres&event=1500+Metres&event=5000+Metres", "")

			Convey("Then the tier time should be formatted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["formatted"], ShouldEqual, "36:40.00")
			})
		})

		Convey("When predicting an event without reference rows", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/predict?target=Marathon", "")

			Convey("Then no reference should be reported", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["code"], ShouldEqual, "no_reference")
			})
		})

		Convey("When building a report", func() {
			w := do(mux, http.MethodPost, "/sessions/"+id+"/report", `{"name":"Runner","age":30}`)

			Convey("Then it should include the computed sections", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["name"], ShouldEqual, "Runner")
				So(body["critical_speed"], ShouldNotBeNil)
				So(body["summary"], ShouldNotBeNil)
			})
		})

		Convey("When analysing an unknown session", func() {
			w := do(mux, http.MethodGet, "/sessions/nope/scores", "")

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given performances whose Riegel extrapolation overflows", t, func() {
		mux := newMux()
		id := createSession(mux, "Man")
		w := do(mux, http.MethodPost, "/sessions/"+id+"/observations",
			`{"observations":[{"event":"1500 Metres","time":"0.01"},{"event":"Mile","time":"99999999"}]}`)
		So(w.Code, ShouldEqual, http.StatusOK)

		Convey("When requesting a Riegel prediction", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/riegel?a=1500+Metres&b=Mile&target=100+Kilometres+Road", "")

			Convey("Then no prediction should be available", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "insufficient_data")
			})
		})

		Convey("When a report asks for the same prediction", func() {
			w := do(mux, http.MethodPost, "/sessions/"+id+"/report",
				`{"name":"Runner","age":30,"riegel":{"event_a":"1500 Metres","event_b":"Mile","target":"100 Kilometres Road"}}`)

			Convey("Then the report should fail with a readable error", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "insufficient_data")
			})
		})
	})

	Convey("Given a server without a score table", t, func() {
		mux := newMux()
		id := createSession(mux, "Man")

		Convey("When requesting scores", func() {
			w := do(mux, http.MethodGet, "/sessions/"+id+"/scores", "")

			Convey("Then scoring should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "no_score_table")
			})
		})
	})
}
