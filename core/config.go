package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Database DatabaseConfig
		Events   EventsConfig
	}

	ServerConfig struct {
		Host               string
		Port               int
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		LockRetries   int
	}

	EventsConfig struct {
		// MaxOccurrences bounds series that have neither an end date nor a count.
		MaxOccurrences int
		// OccurrenceCeiling bounds every series, including end-date bounded ones.
		OccurrenceCeiling int
		ReminderLookahead time.Duration
		Timezone          string
		DigestRecipient   mail.Address
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location returns the timezone recurrence rules are evaluated in.
func (c EventsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, falling back to UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Ki Aikido")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "n3x!7o2#kq@v0s&8b$1j+u_t6rzy5=e4fw9hgc-ad(lmpi)")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromName", "Ki Aikido")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")

	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "kiaikido")
	conf.SetDefault("dbUser", "kiaikido")
	conf.SetDefault("dbPassword", "kiaikido")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "postgres")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("dbLockRetries", 3)

	conf.SetDefault("eventsMaxOccurrences", 100)
	conf.SetDefault("eventsOccurrenceCeiling", 5000)
	conf.SetDefault("eventsReminderLookahead", 7*24*time.Hour)
	conf.SetDefault("eventsTimezone", "UTC")
	conf.SetDefault("eventsDigestName", "Ki Aikido")
	conf.SetDefault("eventsDigestEmail", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:         conf.GetString("appName"),
		Env:             env,
		Build:           conf.GetString("build"),
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		RollbarToken:    conf.GetString("rollbarToken"),
		SendgridApiKey:  conf.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("defaultFromName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Port:               conf.GetInt("serverPort"),
			DebugHost:          conf.GetString("serverDebugHost"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("shutdownTimeout"),
			DisableReqLogs:     conf.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
			LockRetries:   conf.GetInt("dbLockRetries"),
		},
		Events: EventsConfig{
			MaxOccurrences:    conf.GetInt("eventsMaxOccurrences"),
			OccurrenceCeiling: conf.GetInt("eventsOccurrenceCeiling"),
			ReminderLookahead: conf.GetDuration("eventsReminderLookahead"),
			Timezone:          conf.GetString("eventsTimezone"),
			DigestRecipient: mail.Address{
				Name:    conf.GetString("eventsDigestName"),
				Address: conf.GetString("eventsDigestEmail"),
			},
		},
	}
}

// NewTestConfig returns the configuration used by tests: no .env lookup, no network services.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Ki Aikido",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "Ki Aikido", Address: "noreply@test.local"},
		Server: ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
			DisableReqLogs:     true,
		},
		Database: DatabaseConfig{Engine: "memory", LockRetries: 3},
		Events: EventsConfig{
			MaxOccurrences:    100,
			OccurrenceCeiling: 5000,
			ReminderLookahead: 7 * 24 * time.Hour,
			Timezone:          "UTC",
			DigestRecipient:   mail.Address{Name: "Federation", Address: "admin@test.local"},
		},
	}
}
