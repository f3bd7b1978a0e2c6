package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionTTL    time.Duration
	WorkStartHour int
	WorkHours     int
	// BootstrapAdminUsername and BootstrapAdminPassword seed an initial
	// administrator account on an empty database. Both must be set together.
	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

// Load parses configuration values from the current process environment.
//
// Every field has a sensible default; invalid values are collected and
// reported together so an operator can fix them in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		SQLiteDSN:     "file:maintenance.db",
		SessionTTL:    24 * time.Hour,
		WorkStartHour: 8,
		WorkHours:     8,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SCHEDULER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SCHEDULER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if startValue := strings.TrimSpace(os.Getenv("MAINTAINER_WORK_START_HOUR")); startValue != "" {
		start, err := strconv.Atoi(startValue)
		if err != nil || start < 0 || start > 23 {
			invalid = append(invalid, "MAINTAINER_WORK_START_HOUR")
		} else {
			cfg.WorkStartHour = start
		}
	}

	if hoursValue := strings.TrimSpace(os.Getenv("MAINTAINER_WORK_HOURS")); hoursValue != "" {
		hours, err := strconv.Atoi(hoursValue)
		if err != nil || hours <= 0 || hours > 24 {
			invalid = append(invalid, "MAINTAINER_WORK_HOURS")
		} else {
			cfg.WorkHours = hours
		}
	}

	cfg.BootstrapAdminUsername = strings.TrimSpace(os.Getenv("SCHEDULER_BOOTSTRAP_ADMIN_USERNAME"))
	cfg.BootstrapAdminPassword = os.Getenv("SCHEDULER_BOOTSTRAP_ADMIN_PASSWORD")
	if (cfg.BootstrapAdminUsername == "") != (cfg.BootstrapAdminPassword == "") {
		invalid = append(invalid, "SCHEDULER_BOOTSTRAP_ADMIN_USERNAME")
	}

	if cfg.WorkStartHour+cfg.WorkHours > 24 {
		invalid = append(invalid, "MAINTAINER_WORK_HOURS")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
