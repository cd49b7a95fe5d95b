package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Stem      string // Required: directory stem all teams live under
	PowerUser string // Required: directory subject used for privileged grants

	// GuestOrgs lists the schacHomeOrganizations whose members count as
	// guests (and so cannot hold the admin role).
	GuestOrgs []string

	GrouperURL      string        // Required: Grouper web service root URL
	GrouperUser     string        // Basic auth user for the Grouper web service
	GrouperPassword string        // Basic auth password for the Grouper web service
	GrouperTimeout  time.Duration // Optional: per-call timeout (default: 10s)

	SessionSecret string // Required: HS256 secret shared with the SSO gateway
	DatabaseFile  string // Optional: path to SQLite database file (default: ./teams.db)

	SMTPHost     string // SMTP relay host; mail is disabled when empty
	SMTPPort     int    // SMTP relay port (default: 587)
	SMTPUser     string // Optional: SMTP auth user
	SMTPPassword string // Optional: SMTP auth password
	MailFrom     string // Sender address on outgoing mail
	MailFromName string // Display name next to MailFrom
	BaseURL      string // Public URL of this application, used in mail links

	MaxInvitations int           // Optional: per-request invitation cap (default: 20)
	InvitationTTL  time.Duration // Optional: how long invitations stay redeemable (default: 14 days)
	CSRFTokenTTL   time.Duration // Optional: CSRF token lifetime (default: 30m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Stem:      os.Getenv("TEAMS_STEM"),
		PowerUser: os.Getenv("TEAMS_POWER_USER"),
		GuestOrgs: splitList(os.Getenv("TEAMS_GUEST_ORGS")),

		GrouperURL:      os.Getenv("GROUPER_URL"),
		GrouperUser:     os.Getenv("GROUPER_USER"),
		GrouperPassword: os.Getenv("GROUPER_PASSWORD"),
		GrouperTimeout:  getEnvDurationOrDefault("GROUPER_TIMEOUT", 10*time.Second),

		SessionSecret: os.Getenv("TEAMS_SESSION_SECRET"),
		DatabaseFile:  getEnvOrDefault("TEAMS_DATABASE_FILE", "teams.db"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "noreply@surfteams.nl"),
		MailFromName: getEnvOrDefault("MAIL_FROM_NAME", "SURFteams"),
		BaseURL:      getEnvOrDefault("TEAMS_BASE_URL", "http://localhost:8080"),

		MaxInvitations: getEnvIntOrDefault("MAX_INVITATIONS", 20),
		InvitationTTL:  getEnvDurationOrDefault("INVITATION_EXPIRY", 14*24*time.Hour),
		CSRFTokenTTL:   getEnvDurationOrDefault("CSRF_TOKEN_TTL", 30*time.Minute),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
