package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/sentiolabs/sentio/internal/adapters/http/api"
	"github.com/sentiolabs/sentio/internal/adapters/http/site"
	"github.com/sentiolabs/sentio/internal/adapters/http/swagger"
	app "github.com/sentiolabs/sentio/internal/app"
	"github.com/sentiolabs/sentio/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			// Test with environment variables
			_ = os.Setenv("SENTIO_ADDR", ":8080")
			_ = os.Setenv("SENTIO_QUEUE_SIZE", "1000")
			_ = os.Setenv("SENTIO_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("SENTIO_ADDR")
				_ = os.Unsetenv("SENTIO_QUEUE_SIZE")
				_ = os.Unsetenv("SENTIO_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithWorkerCount(8),
					app.WithQueueSize(2000),
					app.WithCacheCapacity(1000),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc, 0)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			// Set up test environment
			_ = os.Setenv("SENTIO_ADDR", ":8080")
			_ = os.Setenv("SENTIO_QUEUE_SIZE", "1000")
			_ = os.Setenv("SENTIO_WORKER_COUNT", "2")
			defer func() {
				_ = os.Unsetenv("SENTIO_ADDR")
				_ = os.Unsetenv("SENTIO_QUEUE_SIZE")
				_ = os.Unsetenv("SENTIO_WORKER_COUNT")
			}()

			convey.Convey("Then all components should work together", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// Load configuration
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)

				// Create service (without starting to keep the test hermetic)
				svc := app.New(
					app.WithWorkerCount(cfg.WorkerCount),
					app.WithQueueSize(cfg.QueueSize),
					app.WithCacheCapacity(cfg.CacheCapacity),
					app.WithCacheTTL(cfg.CacheTTL()),
					app.WithModelTimeout(cfg.ModelTimeout()),
				)
				convey.So(svc, convey.ShouldNotBeNil)

				// Create HTTP server
				server := api.NewServer(svc, svc, 0)
				convey.So(server, convey.ShouldNotBeNil)

				// Create HTTP mux
				mux := http.NewServeMux()
				convey.So(mux, convey.ShouldNotBeNil)

				// Register routes
				server.Register(ctx, mux)
				swagger.Register(ctx, mux)
				site.Register(ctx, mux)

				// Stop service
				svc.Stop()
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			// Set invalid configuration
			_ = os.Setenv("SENTIO_ADDR", "")
			defer func() { _ = os.Unsetenv("SENTIO_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			convey.Convey("Then service should handle invalid options gracefully", func() {
				// Non-positive values fall back to defaults
				svc := app.New(
					app.WithWorkerCount(0),
					app.WithQueueSize(0),
					app.WithCacheCapacity(0),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationResourceCleanup(t *testing.T) {
	convey.Convey("Given main application resource cleanup", t, func() {
		convey.Convey("When testing service creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then stats should be readable before start", func() {
				stats := svc.GetStats()
				convey.So(stats, convey.ShouldNotBeNil)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})

			convey.Convey("And stopping an unstarted service should be safe", func() {
				convey.So(svc.Stop, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing multiple service creation cycles", func() {
			convey.Convey("Then multiple services should be created successfully", func() {
				for i := 0; i < 3; i++ {
					svc := app.New()
					convey.So(svc, convey.ShouldNotBeNil)

					stats := svc.GetStats()
					convey.So(stats, convey.ShouldNotBeNil)
				}
			})
		})
	})
}
