package cfg

import (
	"cmp"
	"fmt"
	"regexp"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Record store configuration
	SheetID      string `long:"sheet-id" env:"GOOGLE_SHEET_ID" description:"Target spreadsheet identity for the record store"`
	DatabasePath string `long:"database-path" env:"DATABASE_PATH" default:"./shelfwatch.db" description:"Path to the local row store database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing per-item source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of workers processing sources within a run cycle"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Interval between run cycles in seconds"`
	RequestTimeout    int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"10" description:"Per-request fetch timeout in seconds"`
	RunTimeout        int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"600" description:"Wall-clock timeout for a full run cycle in seconds"`
	RetryCount        int    `long:"retry-count" env:"RETRY_COUNT" default:"3" description:"Fetch and store write retry attempts"`

	// Change detection
	WriteOnChangeOnly bool   `long:"write-on-change-only" env:"WRITE_ON_CHANGE_ONLY" description:"Persist snapshots only when the change detector reports a change"`
	PriceDeltaMin     string `long:"price-delta-min" env:"PRICE_DELTA_MIN" default:"0.01" description:"Minimum significant price delta; smaller moves are treated as noise"`

	// Notifications
	NotifyEmail           bool   `long:"notify-email" env:"NOTIFY_EMAIL" description:"Enable the email channel for live change alerts"`
	NotifyCooldownMinutes int    `long:"notify-cooldown-minutes" env:"NOTIFY_COOLDOWN_MINUTES" default:"60" description:"Cool-down window before the same item/change pair may alert again"`
	TelegramBotToken      string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token (telegram channel disabled when empty)"`
	TelegramChatID        int64  `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat to deliver alerts to"`
	SMTPHost              string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host for the email channel"`
	SMTPPort              string `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser              string `long:"smtp-user" env:"SMTP_USER" description:"SMTP auth user"`
	SMTPPassword          string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP auth password"`
	SMTPFrom              string `long:"smtp-from" env:"SMTP_FROM" description:"From address for email alerts"`
	SMTPTo                string `long:"smtp-to" env:"SMTP_TO" description:"Recipient address for email alerts"`

	// Digest
	DigestNotifyTelegram bool   `long:"digest-notify-telegram" env:"DIGEST_NOTIFY_TELEGRAM" description:"Deliver daily digests to the telegram channel"`
	DigestNotifyEmail    bool   `long:"digest-notify-email" env:"DIGEST_NOTIFY_EMAIL" description:"Deliver daily digests to the email channel"`
	DigestHoursDefault   int    `long:"digest-hours-default" env:"DIGEST_HOURS_DEFAULT" default:"24" description:"Fallback digest window size in hours"`
	DailyDigestTime      string `long:"daily-digest-time" env:"DAILY_DIGEST_TIME" default:"09:00" description:"Local time (HH:MM) at which the daily digest flushes"`

	// Export
	ExportDefaultSheet string `long:"export-default-sheet" env:"EXPORT_DEFAULT_SHEET" default:"Snapshots" description:"Default worksheet name for the export collaborator"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"shelfwatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var reDigestTime = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if !reDigestTime.MatchString(raw.DailyDigestTime) {
		return nil, fmt.Errorf("invalid DAILY_DIGEST_TIME %q: expected HH:MM in 24h format", raw.DailyDigestTime)
	}

	cfg := &Cfg{
		SheetID:               raw.SheetID,
		DatabasePath:          raw.DatabasePath,
		SourcesDir:            raw.SourcesDir,
		Port:                  raw.Port,
		WorkerCount:           raw.WorkerCount,
		SchedulerInterval:     raw.SchedulerInterval,
		RequestTimeout:        raw.RequestTimeout,
		RunTimeout:            raw.RunTimeout,
		RetryCount:            raw.RetryCount,
		WriteOnChangeOnly:     raw.WriteOnChangeOnly,
		PriceDeltaMin:         raw.PriceDeltaMin,
		NotifyEmail:           raw.NotifyEmail,
		NotifyCooldownMinutes: raw.NotifyCooldownMinutes,
		TelegramBotToken:      raw.TelegramBotToken,
		TelegramChatID:        raw.TelegramChatID,
		SMTPHost:              raw.SMTPHost,
		SMTPPort:              raw.SMTPPort,
		SMTPUser:              raw.SMTPUser,
		SMTPPassword:          raw.SMTPPassword,
		SMTPFrom:              raw.SMTPFrom,
		SMTPTo:                raw.SMTPTo,
		DigestNotifyTelegram:  raw.DigestNotifyTelegram,
		DigestNotifyEmail:     raw.DigestNotifyEmail,
		DigestHoursDefault:    raw.DigestHoursDefault,
		DailyDigestTime:       raw.DailyDigestTime,
		ExportDefaultSheet:    raw.ExportDefaultSheet,
		UserAgent:             raw.UserAgent,
		Timezone:              raw.Timezone,
		Debug:                 raw.Debug,
		Version:               GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
