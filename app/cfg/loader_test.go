package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestDigestTimeValidation(t *testing.T) {
	valid := []string{"09:00", "00:00", "23:59", "9:05"}
	for _, v := range valid {
		if !reDigestTime.MatchString(v) {
			t.Errorf("Expected %q to be accepted as a digest time", v)
		}
	}

	invalid := []string{"24:00", "09:60", "0900", "9", "", "9:5", "twelve:30"}
	for _, v := range invalid {
		if reDigestTime.MatchString(v) {
			t.Errorf("Expected %q to be rejected as a digest time", v)
		}
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		SheetID:               "sheet-123",
		DatabasePath:          "./test.db",
		SourcesDir:            "./sources",
		Port:                  "8080",
		WorkerCount:           5,
		SchedulerInterval:     3600,
		WriteOnChangeOnly:     true,
		PriceDeltaMin:         "0.50",
		NotifyCooldownMinutes: 60,
		DigestHoursDefault:    24,
		DailyDigestTime:       "09:00",
		ExportDefaultSheet:    "Snapshots",
		UserAgent:             "Test Agent",
		Timezone:              "UTC",
		Debug:                 true,
	}

	if cfg.SheetID != "sheet-123" {
		t.Errorf("Expected sheet ID 'sheet-123', got '%s'", cfg.SheetID)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if !cfg.WriteOnChangeOnly {
		t.Error("Expected write-on-change-only to be set")
	}
	if cfg.PriceDeltaMin != "0.50" {
		t.Errorf("Expected price delta min '0.50', got '%s'", cfg.PriceDeltaMin)
	}
	if cfg.DailyDigestTime != "09:00" {
		t.Errorf("Expected daily digest time '09:00', got '%s'", cfg.DailyDigestTime)
	}
	if cfg.DigestHoursDefault != 24 {
		t.Errorf("Expected digest hours default 24, got %d", cfg.DigestHoursDefault)
	}
}
