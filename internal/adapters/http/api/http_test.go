package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/tatami/internal/adapters/http/api"
	service "github.com/okian/tatami/internal/app"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
	. "github.com/smartystreets/goconvey/convey"
)

func schedule() types.ScheduleConfig {
	return types.ScheduleConfig{
		MatCount:  2,
		StartDate: "2025-03-01",
		DayCount:  2,
		Session: types.SessionConfig{
			MorningStart:           "09:00",
			MorningEnd:             "10:00",
			SlotGranularityMinutes: 30,
		},
	}
}

const categoriesJSON = `{"categories":[
  {"id":"kumite","name":"Kumite -60kg","roster":[{"id":"u1","name":"Tran Van A","club":"Hanoi"}]},
  {"id":"kata","name":"Kata Team","roster":[{"id":"u1","name":"Tran Van A","club":"Hanoi"}]},
  {"id":"solo","name":"Kata Solo","roster":[]}
]}`

func newMux() *http.ServeMux {
	svc := service.New(service.WithDefaultSchedule(schedule()))
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
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

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("Then /healthz reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /metrics serves Prometheus text", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "tatami_")
		})

		Convey("Then /stats lists loaded tournaments", func() {
			do(mux, http.MethodPut, "/tournaments/open/categories", categoriesJSON)
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["tournaments"], ShouldResemble, []any{"open"})
		})

		Convey("Then a wrong method is refused", func() {
			w := do(mux, http.MethodPost, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_UnknownTournament(t *testing.T) {
	Convey("Given a server with no tournaments", t, func() {
		mux := newMux()

		Convey("When an unknown tournament is read", func() {
			cfg := do(mux, http.MethodGet, "/tournaments/nobody/config", "")
			tl := do(mux, http.MethodGet, "/tournaments/nobody/timeline?day=2025-03-01", "")

			Convey("Then it answers 404 and nothing is registered", func() {
				So(cfg.Code, ShouldEqual, http.StatusNotFound)
				So(decode(cfg)["code"], ShouldEqual, "not_found")
				So(tl.Code, ShouldEqual, http.StatusNotFound)
				So(decode(do(mux, http.MethodGet, "/stats", ""))["tournaments"], ShouldBeEmpty)
			})
		})

		Convey("When a command on an unknown tournament fails", func() {
			w := do(mux, http.MethodDelete, "/tournaments/nobody/categories/ghost", "")

			Convey("Then the tournament is not kept", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodGet, "/tournaments/nobody/config", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

type busyDeps struct{}

func (busyDeps) Lookup(context.Context, string) (*scheduler.Scheduler, error) {
	return nil, service.ErrUnknownTournament
}

func (busyDeps) Execute(context.Context, string, string, func(*scheduler.Scheduler) error) (bool, error) {
	return false, service.ErrCommandPending
}

func (busyDeps) Stats(context.Context) service.Stats { return service.Stats{} }

func TestServer_CommandPending(t *testing.T) {
	Convey("Given a command whose first attempt is still running", t, func() {
		mux := http.NewServeMux()
		api.NewServer(busyDeps{}, busyDeps{}).Register(context.Background(), mux)
		w := do(mux, http.MethodPut, "/tournaments/open/categories", categoriesJSON, api.CommandIDHeader, "cmd-1")

		Convey("Then the retry gets 409 command_pending", func() {
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "command_pending")
		})
	})
}

func TestServer_Config(t *testing.T) {
	Convey("Given a tournament", t, func() {
		mux := newMux()
		So(do(mux, http.MethodPut, "/tournaments/open/categories", categoriesJSON).Code, ShouldEqual, http.StatusOK)

		Convey("When its config is read", func() {
			w := do(mux, http.MethodGet, "/tournaments/open/config", "")

			Convey("Then the derived grid is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["days"], ShouldResemble, []any{"2025-03-01", "2025-03-02"})
				So(body["slots"], ShouldResemble, []any{"09:00", "09:30", "10:00"})
				So(body["capacity"], ShouldEqual, 12.0)
			})
		})

		Convey("When the mat count is changed", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/config",
				`{"mat_count":3,"start_date":"2025-03-01","day_count":1,"session":{"morning_start":"09:00","morning_end":"09:30","slot_granularity_minutes":30}}`)

			Convey("Then the new grid is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["mats"], ShouldResemble, []any{1.0, 2.0, 3.0})
			})
		})

		Convey("When the config has no mats", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/config", `{"mat_count":0}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the config asks for an enormous grid", func() {
			days := do(mux, http.MethodPut, "/tournaments/open/config",
				`{"mat_count":2,"start_date":"2025-01-01","day_count":1099511627776}`)
			mats := do(mux, http.MethodPut, "/tournaments/open/config",
				`{"mat_count":1000000,"start_date":"2025-01-01","day_count":1}`)

			Convey("Then it is rejected and the grid is kept", func() {
				So(days.Code, ShouldEqual, http.StatusBadRequest)
				So(mats.Code, ShouldEqual, http.StatusBadRequest)
				grid := decode(do(mux, http.MethodGet, "/tournaments/open/config", ""))
				So(grid["days"], ShouldHaveLength, 2)
			})
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/config", `{"mats":3}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "invalid_request")
			})
		})
	})
}

func TestServer_Placements(t *testing.T) {
	Convey("Given a tournament with categories and Kata Team on mat 2 at 09:00", t, func() {
		mux := newMux()
		So(do(mux, http.MethodPut, "/tournaments/open/categories", categoriesJSON).Code, ShouldEqual, http.StatusOK)
		w := do(mux, http.MethodPut, "/tournaments/open/placements/kata", `{"day":"2025-03-01","mat":2,"time":"09:00"}`)
		So(w.Code, ShouldEqual, http.StatusOK)

		Convey("When Kumite is evaluated for the same time on mat 1", func() {
			w := do(mux, http.MethodPost, "/tournaments/open/placements/evaluate",
				`{"category_id":"kumite","day":"2025-03-01","mat":1,"time":"09:00"}`)

			Convey("Then it is reported as blocked without being stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["blocked"], ShouldBeTrue)
				So(body["warnings"], ShouldHaveLength, 1)
				list := decode(do(mux, http.MethodGet, "/tournaments/open/placements", ""))
				So(list["placements"], ShouldHaveLength, 1)
			})
		})

		Convey("When Kumite is placed at the same time", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/placements/kumite", `{"day":"2025-03-01","mat":1,"time":"09:00"}`)

			Convey("Then the API answers 409 with the warnings", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				body := decode(w)
				So(body["code"], ShouldEqual, "placement_rejected")
				warnings := body["warnings"].([]any)
				So(warnings, ShouldHaveLength, 1)
				So(warnings[0].(map[string]any)["type"], ShouldEqual, string(types.AthleteSameTime))
			})
		})

		Convey("When Kumite is placed on the occupied slot", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/placements/kumite", `{"day":"2025-03-01","mat":2,"time":"09:00"}`)

			Convey("Then it is a hard clash", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When Kumite is placed at another time", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/placements/kumite", `{"day":"2025-03-01","mat":1,"time":"09:30"}`)

			Convey("Then it is accepted with an advisory", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["placement"].(map[string]any)["mat"], ShouldEqual, 1.0)
				So(body["warnings"], ShouldHaveLength, 1)
			})
		})

		Convey("When the same command id is sent twice", func() {
			first := do(mux, http.MethodPut, "/tournaments/open/placements/solo", `{"day":"2025-03-01","mat":1,"time":"09:00"}`,
				api.CommandIDHeader, "cmd-1")
			second := do(mux, http.MethodPut, "/tournaments/open/placements/solo", `{"day":"2025-03-01","mat":1,"time":"10:00"}`,
				api.CommandIDHeader, "cmd-1")

			Convey("Then the repeat is acknowledged without moving the category", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode(second)["duplicate"], ShouldBeTrue)
				list := decode(do(mux, http.MethodGet, "/tournaments/open/placements?day=2025-03-01", ""))
				for _, p := range list["placements"].([]any) {
					if p.(map[string]any)["category_id"] == "solo" {
						So(p.(map[string]any)["time"], ShouldEqual, "09:00")
					}
				}
			})
		})

		Convey("When the category is unknown", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/placements/ghost", `{"day":"2025-03-01","mat":1,"time":"09:00"}`)

			Convey("Then the API answers 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the day is malformed or outside the competition", func() {
			bad := do(mux, http.MethodPut, "/tournaments/open/placements/solo", `{"day":"03/01/2025","mat":1,"time":"09:00"}`)
			outside := do(mux, http.MethodPut, "/tournaments/open/placements/solo", `{"day":"2025-04-01","mat":1,"time":"09:00"}`)
			noTime := do(mux, http.MethodPut, "/tournaments/open/placements/solo", `{"day":"2025-03-01","mat":1}`)

			Convey("Then the API answers 400", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(outside.Code, ShouldEqual, http.StatusBadRequest)
				So(noTime.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the placement is removed", func() {
			w := do(mux, http.MethodDelete, "/tournaments/open/placements/kata", "")

			Convey("Then it reports the removal", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["removed"], ShouldBeTrue)
				list := decode(do(mux, http.MethodGet, "/tournaments/open/placements", ""))
				So(list["placements"], ShouldBeEmpty)
			})
		})

		Convey("When the category is deleted", func() {
			w := do(mux, http.MethodDelete, "/tournaments/open/categories/kata", "")

			Convey("Then its placement goes with it", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				list := decode(do(mux, http.MethodGet, "/tournaments/open/placements", ""))
				So(list["placements"], ShouldBeEmpty)
				So(do(mux, http.MethodDelete, "/tournaments/open/categories/kata", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_ScheduleViews(t *testing.T) {
	Convey("Given a tournament with categories", t, func() {
		mux := newMux()
		So(do(mux, http.MethodPut, "/tournaments/open/categories", categoriesJSON).Code, ShouldEqual, http.StatusOK)

		Convey("When one category is upserted", func() {
			w := do(mux, http.MethodPut, "/tournaments/open/categories/solo", `{"name":"Kata Solo Female"}`)

			Convey("Then the list keeps its position with the new name", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				cats := decode(do(mux, http.MethodGet, "/tournaments/open/categories", ""))["categories"].([]any)
				So(cats, ShouldHaveLength, 3)
				So(cats[2].(map[string]any)["name"], ShouldEqual, "Kata Solo Female")
			})
		})

		Convey("When the global scan runs", func() {
			w := do(mux, http.MethodGet, "/tournaments/open/conflicts", "")

			Convey("Then the shared competitor is reported once", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["conflicts"], ShouldHaveLength, 1)
			})
		})

		Convey("When all days are auto-packed", func() {
			w := do(mux, http.MethodPost, "/tournaments/open/autopack", "")

			Convey("Then every category is placed and overlaps are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["mode"], ShouldEqual, "all_days")
				So(body["placed"], ShouldEqual, 3.0)
				So(body["overflow"], ShouldEqual, 0.0)
				So(body["overlaps"], ShouldEqual, 1.0)
			})
		})

		Convey("When a single unknown day is auto-packed", func() {
			w := do(mux, http.MethodPost, "/tournaments/open/autopack", `{"day":"2025-05-05"}`)

			Convey("Then the API answers 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the config has no competition days", func() {
			cfg := do(mux, http.MethodPut, "/tournaments/open/config",
				`{"mat_count":2,"session":{"morning_start":"09:00","morning_end":"10:00","slot_granularity_minutes":30}}`)
			w := do(mux, http.MethodPost, "/tournaments/open/autopack", "")

			Convey("Then auto-pack answers 400", func() {
				So(cfg.Code, ShouldEqual, http.StatusOK)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the timeline is requested", func() {
			do(mux, http.MethodPost, "/tournaments/open/autopack", `{"day":"2025-03-01"}`)
			missing := do(mux, http.MethodGet, "/tournaments/open/timeline", "")
			w := do(mux, http.MethodGet, "/tournaments/open/timeline?day=2025-03-01", "")

			Convey("Then every mat is listed", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["day"], ShouldEqual, "2025-03-01")
				So(body["mats"], ShouldHaveLength, 2)
			})
		})
	})
}

func TestServer_Events(t *testing.T) {
	Convey("Given a tournament", t, func() {
		mux := newMux()

		Convey("When a custom event is added without an id", func() {
			w := do(mux, http.MethodPost, "/tournaments/open/events", `{"name":"Opening ceremony","date":"2025-03-01","time":"08:30","mat":0}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			event := decode(w)["event"].(map[string]any)
			id := event["id"].(string)

			Convey("Then it gets an id and shows on every mat", func() {
				So(id, ShouldNotBeEmpty)
				tl := decode(do(mux, http.MethodGet, "/tournaments/open/timeline?day=2025-03-01", ""))
				for _, m := range tl["mats"].([]any) {
					So(m.(map[string]any)["entries"], ShouldHaveLength, 1)
				}
			})

			Convey("Then it can be edited", func() {
				w := do(mux, http.MethodPut, "/tournaments/open/events/"+id, `{"name":"Opening","date":"2025-03-01","time":"08:45"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["event"].(map[string]any)["time"], ShouldEqual, "08:45")
			})

			Convey("Then it can be removed once", func() {
				So(do(mux, http.MethodDelete, "/tournaments/open/events/"+id, "").Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodDelete, "/tournaments/open/events/"+id, "").Code, ShouldEqual, http.StatusNotFound)
				list := decode(do(mux, http.MethodGet, "/tournaments/open/events", ""))
				So(list["events"], ShouldBeEmpty)
			})
		})

		Convey("When an event has no name", func() {
			w := do(mux, http.MethodPost, "/tournaments/open/events", `{"date":"2025-03-01"}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
