// main.go — Teamarr sports-IPTV EPG synthesis service.
//
// Runs the scheduler loop (generation, cache refresh, linear-EPG refresh,
// backup, channel reset) alongside an admin/status HTTP surface exposing
// /healthz, /metrics, /status, /generate, /backups, and /providers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/titooo7/teamarr-sub000/internal/backup"
	"github.com/titooo7/teamarr-sub000/internal/config"
	"github.com/titooo7/teamarr-sub000/internal/enforcement"
	"github.com/titooo7/teamarr-sub000/internal/gateway"
	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/groups"
	"github.com/titooo7/teamarr-sub000/internal/httpapi"
	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
	"github.com/titooo7/teamarr-sub000/internal/platform/logger"
	"github.com/titooo7/teamarr-sub000/internal/provider"
	"github.com/titooo7/teamarr-sub000/internal/scheduler"
	"github.com/titooo7/teamarr-sub000/internal/sports"
	"github.com/titooo7/teamarr-sub000/internal/store"
	"github.com/titooo7/teamarr-sub000/internal/xmltv"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	tz, err := time.LoadLocation(cfg.UserTimezone)
	if err != nil {
		log.Warn("unknown timezone, falling back to UTC", "timezone", cfg.UserTimezone, "error", err)
		tz = time.UTC
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database opened", "path", cfg.DBPath)

	sports.RegisterTeamVariables()

	leagueMappings := provider.DefaultTSDBLeagueMappings()
	tsdb := provider.NewTSDBClient(cfg.TSDBAPIKey, leagueMappings)
	registry := provider.NewRegistry(tsdb)

	teamCache := provider.NewTeamCache(registry)
	if err := teamCache.Refresh(context.Background(), leagueMappings.SupportedLeagues()); err != nil {
		log.Warn("initial roster cache refresh", "error", err)
	}

	gw := gateway.New(cfg.GatewayBaseURL)

	streamCache := &match.StreamCache{Store: db, Events: registry}
	streamMatcher := &match.StreamMatcher{
		Team:    &match.TeamMatcher{Events: registry, Teams: teamCache, UserTZ: tz, IncludeFinal: false},
		Event:   &match.EventCardMatcher{Events: registry},
		Cache:   streamCache,
		Leagues: leagueMappings.Leagues(),
	}

	numbers := &numbering.Numbering{Store: db, Mode: numbering.ModeStrictBlock}
	lifecycleSvc := &lifecycle.Service{
		Store:                db,
		Numbering:            numbers,
		Timezone:             tz,
		DefaultDurationHours: 3.0,
	}

	processor := &groups.Processor{
		Streams:   gw,
		Matcher:   streamMatcher,
		Enricher:  registry,
		Teams:     teamCache,
		Lifecycle: lifecycleSvc,
		Store:     db,
		Generator: "teamarr",
	}

	driver := &generation.Driver{
		Store:                db,
		Processor:            processor,
		Events:               registry,
		CrossGroup:           &enforcement.Enforcer{Store: db.AsEnforcementStore()},
		Keyword:              &enforcement.KeywordEnforcer{Store: db.AsKeywordStore()},
		Ordering:             &enforcement.KeywordOrderingEnforcer{Store: db.AsOrderingStore()},
		Gateway:              gw,
		ReconcileMode:        enforcement.ModeDetectOnly,
		Generator:            "teamarr",
		DefaultDaysAhead:     cfg.DaysAhead,
		HistoryRetentionDays: cfg.HistoryRetentionDays,
	}

	targetDate := func() time.Time { return time.Now().In(tz) }

	backups := backup.New(db.DB(), filepath.Join(filepath.Dir(cfg.DBPath), "backups"))

	sched := &scheduler.Scheduler{}
	registerTasks(sched, cfg, log, driver, lifecycleSvc, db, gw, targetDate, backups, teamCache, leagueMappings)

	server := httpapi.NewServer(driver, targetDate, backups, tsdb)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	mainCtx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	sched.Start(mainCtx)
	defer sched.Stop()

	go func() {
		log.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", "error", err)
	}
	log.Info("stopped")
}

// registerTasks wires every background job onto sched in the fixed order
// the scheduler's own doc comment describes: backup, channel-reset,
// cache-refresh, linear-EPG, then generation.
func registerTasks(sched *scheduler.Scheduler, cfg config.Config, log *slog.Logger, driver *generation.Driver, lifecycleSvc *lifecycle.Service, db *store.Store, gw *gateway.Client, targetDate func() time.Time, backups *backup.Service, teamCache *provider.TeamCache, leagueMappings *provider.StaticLeagueMappings) {
	add := func(name, expr string, run func(ctx context.Context) error) {
		schedule, err := scheduler.ParseSchedule(expr)
		if err != nil {
			log.Error("invalid cron expression, task disabled", "task", name, "cron", expr, "error", err)
			return
		}
		sched.Tasks = append(sched.Tasks, scheduler.Task{Name: name, Schedule: schedule, Run: run})
	}

	add("backup", cfg.BackupCron, func(ctx context.Context) error {
		result := backups.CreateBackup(ctx, false)
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}
		_, err := backups.RotateBackups(cfg.BackupRetentionCount)
		return err
	})

	if schedule, err := scheduler.ParseSchedule(cfg.ChannelResetCron); err != nil {
		log.Error("invalid cron expression, task disabled", "task", "channel_reset", "cron", cfg.ChannelResetCron, "error", err)
	} else {
		sched.Tasks = append(sched.Tasks, scheduler.NewChannelResetTask("channel_reset", schedule, lifecycleSvc, db, gw))
	}

	add("cache_refresh", cfg.CacheRefreshCron, func(ctx context.Context) error {
		return teamCache.Refresh(ctx, leagueMappings.SupportedLeagues())
	})

	linearSources := parseLinearSources(cfg.LinearSources)
	if len(linearSources) > 0 {
		linearOutputPath := filepath.Join(filepath.Dir(cfg.OutputPath), "linear.xml")
		add("linear_epg_refresh", cfg.LinearEPGCron, func(ctx context.Context) error {
			doc, errs := xmltv.FetchLinearSources(ctx, http.DefaultClient, linearSources, "teamarr")
			for _, e := range errs {
				log.Warn("linear source fetch failed", "error", e)
			}
			if doc == nil {
				return nil
			}
			return os.WriteFile(linearOutputPath, doc, 0o644)
		})
	}

	sched.Tasks = append(sched.Tasks, scheduler.NewGenerationTask("generation", mustSchedule(log, cfg.GenerationCron), driver, targetDate, nil))
}

// mustSchedule parses a cron expression for a task with no graceful
// disable path (generation is the one job this process exists to run);
// an invalid expression here is a startup-time configuration error.
func mustSchedule(log *slog.Logger, expr string) cron.Schedule {
	schedule, err := scheduler.ParseSchedule(expr)
	if err != nil {
		log.Error("invalid generation cron expression", "cron", expr, "error", err)
		os.Exit(1)
	}
	return schedule
}

// parseLinearSources turns config.LinearSources's "name=url,name=url" form
// into priority-ordered xmltv.LinearSource values, first entry highest.
func parseLinearSources(raw string) []xmltv.LinearSource {
	if raw == "" {
		return nil
	}
	entries := strings.Split(raw, ",")
	sources := make([]xmltv.LinearSource, 0, len(entries))
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		sources = append(sources, xmltv.LinearSource{
			ID:       strconv.Itoa(i),
			Name:     strings.TrimSpace(name),
			URL:      strings.TrimSpace(url),
			Priority: len(entries) - i,
		})
	}
	return sources
}
