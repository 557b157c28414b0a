// Package bot routes incoming chat messages to reminder commands.
package bot

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	remindsvc "github.com/beat4ocean/astrbot-plugin-remind/internal/services/remind"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Description string
	Usage       string
	Handle      HandlerFunc
}

type Request struct {
	Update     kit.Update
	Chat       kit.ChatTarget
	SessionKey string
	FromID     int64
	FromName   string
	Args       []string

	Adapter kit.Adapter
	Logger  logx.Logger
}

func (r *Request) reply(ctx context.Context, text string) {
	_, _ = r.Adapter.SendText(ctx, r.Chat, text, nil)
}

// Router matches "/command args..." messages against a flat command set
// and runs handlers inline on the dispatch goroutine. Handlers only touch
// the store and the scheduler, so per-command worker pools are not needed.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	engine  *remindsvc.Service

	uniqueSession atomic.Bool

	mu    sync.RWMutex
	cmds  map[string]Command
	order []string
}

func NewRouter(adapter kit.Adapter, engine *remindsvc.Service, uniqueSession bool, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		log:     log,
		adapter: adapter,
		engine:  engine,
		cmds:    map[string]Command{},
	}
	r.uniqueSession.Store(uniqueSession)
	r.register()
	return r
}

// SetUniqueSession flips per-user isolation on config reload. Existing
// reminders keep the key they were created under.
func (r *Router) SetUniqueSession(v bool) { r.uniqueSession.Store(v) }

func (r *Router) add(c Command) {
	r.mu.Lock()
	if _, dup := r.cmds[c.Name]; !dup {
		r.order = append(r.order, c.Name)
	}
	r.cmds[c.Name] = c
	r.mu.Unlock()
}

// MenuCommands returns the registered commands for platform menus.
func (r *Router) MenuCommands() []kit.BotCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]kit.BotCommand, 0, len(r.order))
	for _, name := range r.order {
		c := r.cmds[name]
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

// DispatchLoop consumes updates until ctx is canceled or the channel closes.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	r.log.Info("command dispatcher started")
	defer r.log.Info("command dispatcher stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	// strip the @botname suffix used in groups
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}

	r.mu.RLock()
	cmd, ok := r.cmds[word]
	r.mu.RUnlock()
	if !ok {
		return
	}

	req := &Request{
		Update:     up,
		Chat:       kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		SessionKey: r.sessionKey(msg),
		FromID:     msg.FromID,
		FromName:   msg.FromUsername,
		Args:       parts[1:],
		Adapter:    r.adapter,
		Logger: r.log.With(
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	defer func() {
		if rec := recover(); rec != nil {
			req.Logger.Error("panic in command handler", logx.Any("panic", rec), logx.Stack(string(debug.Stack())))
		}
	}()

	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cmd.Handle(hctx, req); err != nil {
		req.Logger.Warn("command failed", logx.Err(err))
	}
}

// sessionKey derives the storage key for a message. Isolation only applies
// in group chats; a private chat is already one user's session.
func (r *Router) sessionKey(msg *kit.Message) string {
	sessionID := strconv.FormatInt(msg.ChatID, 10)
	creatorID := strconv.FormatInt(msg.FromID, 10)
	unique := r.uniqueSession.Load() && msg.IsGroup
	return reminder.SessionKey(sessionID, creatorID, unique)
}

func (r *Router) register() {
	r.add(Command{
		Name:        "remind",
		Description: "set a reminder",
		Usage:       "/remind <HH:MM> [weekday] <text> [daily|weekly|monthly|yearly] [workday|holiday]",
		Handle:      r.handleAdd(false),
	})
	r.add(Command{
		Name:        "task",
		Description: "set a task reminder",
		Usage:       "/task <HH:MM> [weekday] <text> [daily|weekly|monthly|yearly] [workday|holiday]",
		Handle:      r.handleAdd(true),
	})
	r.add(Command{
		Name:        "list",
		Description: "list your reminders",
		Usage:       "/list",
		Handle:      r.handleList,
	})
	r.add(Command{
		Name:        "delete",
		Description: "delete a reminder by number",
		Usage:       "/delete <n>",
		Handle:      r.handleDelete,
	})
	r.add(Command{
		Name:        "help",
		Description: "show help",
		Usage:       "/help",
		Handle:      r.handleHelp,
	})
	r.add(Command{
		Name:        "start",
		Description: "show help",
		Usage:       "/start",
		Handle:      r.handleHelp,
	})
}

func (r *Router) handleAdd(isTask bool) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		parsed, err := parseRemindArgs(req.Args, time.Now().In(r.engine.Location()))
		if err != nil {
			usage := "/remind"
			if isTask {
				usage = "/task"
			}
			req.reply(ctx, err.Error()+"\nusage: "+usage+" <HH:MM> [weekday] <text> [daily|weekly|monthly|yearly] [workday|holiday]")
			return nil
		}

		item := reminder.Reminder{
			Text:        parsed.text,
			DateTime:    parsed.at,
			UserName:    req.FromName,
			RepeatType:  parsed.repeat,
			HolidayType: parsed.holiday,
			CreatorID:   strconv.FormatInt(req.FromID, 10),
			CreatorName: req.FromName,
			IsTask:      isTask,
		}
		if err := r.engine.Add(ctx, req.SessionKey, item); err != nil {
			req.reply(ctx, "could not save the reminder, try again later")
			return err
		}

		kind := "reminder"
		if isTask {
			kind = "task"
		}
		req.reply(ctx, "✅ "+kind+" set for "+parsed.at.Format("2006-01-02 15:04")+
			" ("+reminder.Description(parsed.repeat, parsed.holiday)+")")
		return nil
	}
}

func (r *Router) handleList(ctx context.Context, req *Request) error {
	items := r.engine.List(req.SessionKey)
	if len(items) == 0 {
		req.reply(ctx, "no reminders yet. use /remind to add one")
		return nil
	}
	req.reply(ctx, reminder.FormatList(items))
	return nil
}

func (r *Router) handleDelete(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		req.reply(ctx, "usage: /delete <n>  (see /list for numbers)")
		return nil
	}
	n, err := strconv.Atoi(req.Args[0])
	if err != nil || n < 1 {
		req.reply(ctx, "usage: /delete <n>  (see /list for numbers)")
		return nil
	}

	removed, err := r.engine.RemoveAt(ctx, req.SessionKey, n-1)
	if errors.Is(err, storage.ErrIndexOutOfRange) {
		req.reply(ctx, "no reminder with that number, see /list")
		return nil
	}
	if err != nil {
		req.reply(ctx, "could not delete the reminder, try again later")
		return err
	}
	req.reply(ctx, "🗑 deleted: "+removed.Text)
	return nil
}
