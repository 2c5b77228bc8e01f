package seeding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/tatami/internal/adapters/http/api"
	service "github.com/okian/tatami/internal/app"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/seeding"
	. "github.com/smartystreets/goconvey/convey"
)

func newServer() *httptest.Server {
	svc := service.New()
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestGenerateCategories(t *testing.T) {
	Convey("Given a normalized config", t, func() {
		ctx := context.Background()
		cfg := &seeding.Config{Categories: 10, Competitors: 12, RosterSize: 5, Seed: 7}
		seeding.Normalize(cfg)

		Convey("Then defaults are filled in", func() {
			So(cfg.MatCount, ShouldEqual, seeding.DefaultMatCount)
			So(cfg.DayCount, ShouldEqual, seeding.DefaultDayCount)
			So(cfg.Timeout, ShouldEqual, seeding.DefaultTimeout)
			So(cfg.TournamentID, ShouldStartWith, "seed-")
			_, ok := types.ParseDay(cfg.StartDate)
			So(ok, ShouldBeTrue)
		})

		Convey("When categories are generated", func() {
			cats := seeding.GenerateCategories(ctx, cfg)

			Convey("Then every category has a unique id and a full roster", func() {
				So(cats, ShouldHaveLength, 10)
				ids := map[string]bool{}
				for _, c := range cats {
					So(c.Roster, ShouldHaveLength, 5)
					ids[c.ID] = true
				}
				So(ids, ShouldHaveLength, 10)
			})

			Convey("Then rosters drawn from a small pool overlap", func() {
				seen := map[string]int{}
				for _, c := range cats {
					for _, comp := range c.Roster {
						seen[comp.ID]++
					}
				}
				shared := 0
				for _, n := range seen {
					if n > 1 {
						shared++
					}
				}
				So(shared, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the roster size exceeds the pool", func() {
			small := &seeding.Config{Competitors: 3, RosterSize: 10}
			seeding.Normalize(small)

			Convey("Then it is clamped", func() {
				So(small.RosterSize, ShouldEqual, 3)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running tatami API", t, func() {
		srv := newServer()
		defer srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When seeding a tournament that fits the grid", func() {
			out := filepath.Join(t.TempDir(), "seed", "categories.json")
			cfg := &seeding.Config{
				BaseURL:     srv.URL,
				Categories:  12,
				Competitors: 20,
				RosterSize:  4,
				MatCount:    3,
				StartDate:   "2025-03-01",
				DayCount:    2,
				Seed:        42,
				OutputFile:  out,
			}
			report, err := seeding.Run(ctx, cfg)

			Convey("Then every category is placed without double booking", func() {
				So(err, ShouldBeNil)
				So(report.Days, ShouldResemble, []types.Day{"2025-03-01", "2025-03-02"})
				So(report.CategoriesSent, ShouldEqual, 12)
				So(report.Placed, ShouldEqual, 12)
				So(report.Overflow, ShouldEqual, 0)
				So(report.TimelineEntries, ShouldEqual, 12)
				So(report.DoubleBookedSlots, ShouldEqual, 0)
				So(report.ConflictPairs, ShouldEqual, report.Overlaps)
			})

			Convey("Then the generated categories are written out", func() {
				b, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var body struct {
					Categories []types.Category `json:"categories"`
				}
				So(json.Unmarshal(b, &body), ShouldBeNil)
				So(body.Categories, ShouldHaveLength, 12)
			})
		})

		Convey("When the tournament overflows a single mat", func() {
			cfg := &seeding.Config{
				BaseURL:    srv.URL,
				Categories: 20,
				MatCount:   1,
				StartDate:  "2025-03-01",
				DayCount:   1,
			}
			report, err := seeding.Run(ctx, cfg)

			Convey("Then double booking is reported but tolerated", func() {
				So(err, ShouldBeNil)
				So(report.Overflow, ShouldBeGreaterThan, 0)
				So(report.DoubleBookedSlots, ShouldBeGreaterThan, 0)
				So(report.TimelineEntries, ShouldEqual, 20)
			})
		})
	})
}

func TestRun_ServiceDown(t *testing.T) {
	Convey("Given a stopped server", t, func() {
		srv := newServer()
		url := srv.URL
		srv.Close()

		Convey("Then the health check fails", func() {
			_, err := seeding.Run(context.Background(), &seeding.Config{BaseURL: url, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}
