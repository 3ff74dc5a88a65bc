package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		DefaultFromEmail string
		RollbarToken     string
		SendgridAPIKey   string
		Server           ServerConfig
		Database         DatabaseConfig
		Economy          EconomyConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine string // postgres | sqlite
		DSN    string
	}

	// EconomyConfig holds the defaults new sessions start with.
	EconomyConfig struct {
		ExpiryDays int
		Segregate  bool
		GradeMin   float64
		GradeMax   float64
	}
)

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Coins for Study")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "t9v#k2-mq8(zx!4w=cf&lo7ps)e3*nb6")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "coins.db")
	v.SetDefault("economy.expiryDays", 30)
	v.SetDefault("economy.segregate", true)
	v.SetDefault("economy.gradeMin", 0.0)
	v.SetDefault("economy.gradeMax", 10.0)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine: v.GetString("database.engine"),
			DSN:    v.GetString("database.dsn"),
		},
		Economy: EconomyConfig{
			ExpiryDays: v.GetInt("economy.expiryDays"),
			Segregate:  v.GetBool("economy.segregate"),
			GradeMin:   v.GetFloat64("economy.gradeMin"),
			GradeMax:   v.GetFloat64("economy.gradeMax"),
		},
	}
}
