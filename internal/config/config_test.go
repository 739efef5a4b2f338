package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/elovote/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.KFactor, convey.ShouldEqual, 30)
			convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
			convey.So(cfg.VoteRetries, convey.ShouldEqual, 1)
			convey.So(cfg.RecentPairWindow, convey.ShouldEqual, 0)
			convey.So(cfg.StoreTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"zero k", func(c *config.Config) { c.KFactor = 0 }},
		{"negative retries", func(c *config.Config) { c.VoteRetries = -1 }},
		{"negative window", func(c *config.Config) { c.RecentPairWindow = -2 }},
		{"zero timeout", func(c *config.Config) { c.StoreTimeoutMS = 0 }},
		{"zero sessions", func(c *config.Config) { c.MaxSessions = 0 }},
		{"zero workers", func(c *config.Config) { c.HistoryWorkers = 0 }},
		{"unknown backend", func(c *config.Config) { c.StoreBackend = "redis" }},
		{"file without path", func(c *config.Config) { c.StoreBackend = config.BackendFile; c.StoreFilePath = "" }},
		{"sqlite without path", func(c *config.Config) { c.StoreBackend = config.BackendSQLite; c.SQLitePath = "" }},
		{"postgres without dsn", func(c *config.Config) { c.StoreBackend = config.BackendPostgres }},
		{"export without path", func(c *config.Config) { c.ExportSchedule = "@every 1m"; c.ExportPath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
