package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the on-call service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	LockTimeout        time.Duration
	ReminderWebhookURL string
	ReminderLeadDays   int
	ReminderCronSpec   string
}

// Load parses configuration values from the current process environment.
//
// Every field has a sensible default; invalid values are collected and
// reported together so an operator can fix the environment in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:oncall.db?_pragma=foreign_keys(1)",
		LockTimeout:      5 * time.Second,
		ReminderLeadDays: 1,
		ReminderCronSpec: "0 8 * * *",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ONCALL_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ONCALL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ONCALL_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("ONCALL_LOCK_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "ONCALL_LOCK_TIMEOUT")
		} else {
			cfg.LockTimeout = timeout
		}
	}

	if webhook := strings.TrimSpace(os.Getenv("ONCALL_REMINDER_WEBHOOK_URL")); webhook != "" {
		cfg.ReminderWebhookURL = webhook
	}

	if leadValue := strings.TrimSpace(os.Getenv("ONCALL_REMINDER_LEAD_DAYS")); leadValue != "" {
		lead, err := strconv.Atoi(leadValue)
		if err != nil || lead < 0 {
			invalid = append(invalid, "ONCALL_REMINDER_LEAD_DAYS")
		} else {
			cfg.ReminderLeadDays = lead
		}
	}

	if spec := strings.TrimSpace(os.Getenv("ONCALL_REMINDER_CRON")); spec != "" {
		cfg.ReminderCronSpec = spec
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
