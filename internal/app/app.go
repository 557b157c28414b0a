// Package app wires configuration, transport, storage and the reminder
// engine into one lifecycle.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/bot"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/config"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/runtime/supervisor"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/holiday"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/notify"
	remindsvc "github.com/beat4ocean/astrbot-plugin-remind/internal/services/remind"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/scheduler"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	telegram "github.com/beat4ocean/astrbot-plugin-remind/internal/transport/telegram"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter

	sched  *scheduler.Service
	cal    *holiday.Calendar
	notif  *notify.Service
	engine *remindsvc.Service
	router *bot.Router

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	if err := config.ValidateDefaults(); err != nil {
		return nil, fmt.Errorf("option schema broken: %w", err)
	}

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateRemind(&cfg.Remind); err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap logging with the Telegram sink disabled, point it at the
	// log chat, then apply the real config. Avoids a startup warning when
	// the sink is enabled before its target is known.
	baseLogCfg := logCfgFrom(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if cfg.Telegram.LogChatID != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.LogChatID)
	}
	logSvc.Apply(logCfgFrom(cfg))

	storeCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	backend := storeCfg.Driver
	if storeCfg.PostgresURL != "" {
		backend = "postgres"
	} else if backend == "" {
		backend = "file"
	}
	log.Info("storage opened", logx.String("backend", backend))

	sched := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, log.With(logx.String("comp", "scheduler")))
	cal := holiday.New(holiday.Config{
		BaseURL:  cfg.Remind.HolidayBaseURL,
		CacheDir: cfg.Remind.HolidayCacheDir,
	}, log.With(logx.String("comp", "holiday")))

	notifCfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notify.New(notifCfg, ad, log.With(logx.String("comp", "notify")))

	engine := remindsvc.New(store, sched, cal, notif, telegramResolver, log.With(logx.String("comp", "remind")))
	router := bot.NewRouter(ad, engine, cfg.Remind.UniqueSession, log.With(logx.String("comp", "router")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		sched:   sched,
		cal:     cal,
		notif:   notif,
		engine:  engine,
		router:  router,
		updates: make(chan kit.Update, 128),
	}, nil
}

// telegramResolver turns a stored session id back into a chat target.
// Session ids are the decimal chat id; anything else is undeliverable.
func telegramResolver(sessionID string) (kit.ChatTarget, bool) {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil || chatID == 0 {
		return kit.ChatTarget{}, false
	}
	return kit.ChatTarget{ChatID: chatID}, true
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.notif.Start(a.sup.Context())

	if err := a.engine.Start(a.sup.Context()); err != nil {
		return err
	}

	cfg := a.cfgm.Get()
	a.engine.ApplyBroadcasts(broadcastsFromConfig(cfg, a.log), kit.ChatTarget{ChatID: cfg.Telegram.BroadcastChatID})

	// Best-effort Telegram /menu autocomplete.
	if up, ok := a.adapter.(kit.CommandMenuUpdater); ok {
		menu := a.router.MenuCommands()
		a.sup.Go0("telegram.menu.update", func(c context.Context) {
			mctx, cancel := context.WithTimeout(c, 5*time.Second)
			defer cancel()
			_ = up.UpdateMenuCommands(mctx, menu)
		})
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the newest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeChange(lastApplied, newCfg)
			a.applyReload(lastApplied, newCfg)
			lastApplied = newCfg

			if len(sections) > 0 {
				fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
				a.log.Info("config reloaded", fields...)
			} else {
				a.log.Info("config reloaded (no changes)")
			}
		}
	}
}

func (a *App) applyReload(oldCfg, newCfg *config.Config) {
	// Sections that need a restart to take effect.
	if oldCfg != nil {
		if derefStorage(oldCfg) != derefStorage(newCfg) ||
			strings.TrimSpace(oldCfg.Remind.PostgresURL) != strings.TrimSpace(newCfg.Remind.PostgresURL) {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
		if oldCfg.Telegram.Token != newCfg.Telegram.Token {
			a.log.Warn("telegram token changed; restart required for changes to take effect")
		}
		if strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
			a.log.Warn("scheduler timezone changed; restart required for changes to take effect")
		}
	}

	// Log sink target first so Apply() doesn't warn.
	a.logs.SetTelegramTarget(newCfg.Telegram.LogChatID)
	a.logs.Apply(logCfgFrom(newCfg))

	a.router.SetUniqueSession(newCfg.Remind.UniqueSession)
	a.engine.ApplyBroadcasts(
		broadcastsFromConfig(newCfg, a.log),
		kit.ChatTarget{ChatID: newCfg.Telegram.BroadcastChatID},
	)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context so background loops start unwinding.
	a.sup.Cancel()

	// Each shutdown step gets an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()

		stepCtx := ctx
		var cancel context.CancelFunc
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", 1*time.Second, func(c context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
