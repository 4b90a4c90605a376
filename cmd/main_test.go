package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/mowoo/SLG-Dashboard/internal/app"
	"github.com/mowoo/SLG-Dashboard/internal/config"
	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
	"github.com/mowoo/SLG-Dashboard/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("WARROOM_ADDR", ":8080")
			t.Setenv("WARROOM_DATA_DIR", t.TempDir())
			t.Setenv("WARROOM_MAX_BOARD_SIZE", "30")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxBoardSize, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When converting the default presets", func() {
			presets, err := presetsFromConfig(config.DefaultPresets())

			convey.Convey("Then every preset should convert in name order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(presets), convey.ShouldEqual, len(config.DefaultPresets()))
				for i := 1; i < len(presets); i++ {
					convey.So(presets[i-1].Name, convey.ShouldBeLessThan, presets[i].Name)
				}
			})
		})

		convey.Convey("When a preset carries an unknown operator", func() {
			_, err := presetsFromConfig(map[string]config.PresetConfig{
				"bad": {MeritOp: "==", PowerOp: config.OpAtLeast, EffOp: config.OpAtLeast},
			})

			convey.Convey("Then the conversion should fail", func() {
				convey.So(errors.Is(err, radar.ErrInvalidOp), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When testing service creation from configuration", func() {
			cfg := config.New()
			cfg.DataDir = t.TempDir()
			cfg.DefaultBoardSize = 7
			presets, err := presetsFromConfig(cfg.Presets)
			convey.So(err, convey.ShouldBeNil)

			svc := app.New(serviceOptions(cfg, presets, logger.Nop())...)

			convey.Convey("Then the options should be applied", func() {
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.BoardSize(0), convey.ShouldEqual, 7)
				convey.So(svc.BoardSize(1000), convey.ShouldEqual, cfg.MaxBoardSize)
				convey.So(len(svc.Presets()), convey.ShouldEqual, len(presets))
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainRouter(t *testing.T) {
	convey.Convey("Given a started service behind the router", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New()
		cfg.DataDir = t.TempDir()
		presets, err := presetsFromConfig(cfg.Presets)
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(serviceOptions(cfg, presets, logger.Nop())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newRouter(ctx, cfg, svc, logger.Nop())
		get := func(path string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			return rec
		}

		convey.Convey("Then API and docs routes should both be served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/snapshots").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then reports over an empty folder should report no data", func() {
			rec := get("/overview")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, "no_data")
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			t.Setenv("WARROOM_ADDR", " ")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with extreme options", func() {
			convey.Convey("Then service should fall back to defaults", func() {
				svc := app.New(
					app.WithDedupeSize(0),
					app.WithCache(0, 0),
					app.WithBoardSize(0, 0),
				)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.BoardSize(0), convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}
