// Package holiday answers "is this date a workday?" using a public holiday
// calendar API, with a per-year file cache so the API is hit at most once
// per month per year.
package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

const (
	defaultBaseURL = "https://timor.tech"
	cacheTTL       = 30 * 24 * time.Hour
)

type Config struct {
	BaseURL  string
	CacheDir string
}

// Calendar resolves workday/holiday status for individual dates.
//
// Lookup order: in-memory year map, then cache file, then the HTTP API.
// When everything fails the weekend rule decides (Sat/Sun are rest days),
// so reminders degrade gracefully instead of silently never firing.
type Calendar struct {
	baseURL  string
	cacheDir string
	http     *http.Client
	limiter  *rate.Limiter
	log      logx.Logger

	mu    sync.Mutex
	years map[int]map[string]bool // "MM-DD" -> is rest day
}

func New(cfg Config, log logx.Logger) *Calendar {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	dir := cfg.CacheDir
	if dir == "" {
		dir = "."
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Calendar{
		baseURL:  base,
		cacheDir: dir,
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:      log,
	}
}

// IsWorkday reports whether the date is a working day.
func (c *Calendar) IsWorkday(ctx context.Context, date time.Time) bool {
	return !c.isRestDay(ctx, date)
}

// IsHoliday reports whether the date is a rest day (weekend or public holiday).
func (c *Calendar) IsHoliday(ctx context.Context, date time.Time) bool {
	return c.isRestDay(ctx, date)
}

// Allows applies a reminder's holiday filter to the given date.
func (c *Calendar) Allows(ctx context.Context, ht reminder.HolidayType, date time.Time) bool {
	switch ht {
	case reminder.HolidayWorkday:
		return c.IsWorkday(ctx, date)
	case reminder.HolidayHoliday:
		return c.IsHoliday(ctx, date)
	default:
		return true
	}
}

func (c *Calendar) isRestDay(ctx context.Context, date time.Time) bool {
	days, err := c.year(ctx, date.Year())
	if err != nil {
		c.log.Warn("holiday lookup failed; using weekend rule", logx.Int("year", date.Year()), logx.Err(err))
		return isWeekend(date)
	}
	if rest, ok := days[date.Format("01-02")]; ok {
		return rest
	}
	return isWeekend(date)
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (c *Calendar) year(ctx context.Context, y int) (map[string]bool, error) {
	c.mu.Lock()
	if c.years == nil {
		c.years = map[int]map[string]bool{}
	}
	if days, ok := c.years[y]; ok {
		c.mu.Unlock()
		return days, nil
	}
	c.mu.Unlock()

	if days, err := c.readCache(y); err == nil {
		c.mu.Lock()
		c.years[y] = days
		c.mu.Unlock()
		return days, nil
	}

	days, err := c.fetch(ctx, y)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.years[y] = days
	c.mu.Unlock()

	if err := c.writeCache(y, days); err != nil {
		c.log.Debug("holiday cache write failed", logx.Int("year", y), logx.Err(err))
	}
	return days, nil
}

type apiResponse struct {
	Code    int                `json:"code"`
	Holiday map[string]apiItem `json:"holiday"`
}

type apiItem struct {
	Holiday bool   `json:"holiday"`
	Name    string `json:"name"`
}

func (c *Calendar) fetch(ctx context.Context, y int) (map[string]bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/holiday/year/%d", c.baseURL, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch holidays: http %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("holiday api returned code %d", out.Code)
	}

	days := make(map[string]bool, len(out.Holiday))
	for md, it := range out.Holiday {
		days[md] = it.Holiday
	}
	c.log.Info("holiday calendar fetched", logx.Int("year", y), logx.Int("days", len(days)))
	return days, nil
}

type cacheFile struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Days      map[string]bool `json:"days"`
}

func (c *Calendar) cachePath(y int) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("holiday_%d.json", y))
}

func (c *Calendar) readCache(y int) (map[string]bool, error) {
	b, err := os.ReadFile(c.cachePath(y))
	if err != nil {
		return nil, err
	}
	var f cacheFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Days == nil {
		return nil, errors.New("empty holiday cache")
	}
	if time.Since(f.FetchedAt) > cacheTTL {
		return nil, errors.New("holiday cache expired")
	}
	return f.Days, nil
}

func (c *Calendar) writeCache(y int, days map[string]bool) error {
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(cacheFile{FetchedAt: time.Now(), Days: days})
	if err != nil {
		return err
	}
	tmp := c.cachePath(y) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.cachePath(y))
}
