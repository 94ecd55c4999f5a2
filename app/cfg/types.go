package cfg

type Cfg struct {
	// Record store configuration
	SheetID      string
	DatabasePath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RequestTimeout    int
	RunTimeout        int
	RetryCount        int

	// Change detection
	WriteOnChangeOnly bool
	PriceDeltaMin     string

	// Notifications
	NotifyEmail           bool
	NotifyCooldownMinutes int
	TelegramBotToken      string
	TelegramChatID        int64
	SMTPHost              string
	SMTPPort              string
	SMTPUser              string
	SMTPPassword          string
	SMTPFrom              string
	SMTPTo                string

	// Digest
	DigestNotifyTelegram bool
	DigestNotifyEmail    bool
	DigestHoursDefault   int
	DailyDigestTime      string

	// Export (consumed by the export collaborator only)
	ExportDefaultSheet string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
