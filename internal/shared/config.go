package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	Headless    bool
	MaxPages    int64
	NavTimeout  time.Duration
	ScrollPass  int
	SettleDelay time.Duration
	SearchRPS   int
	CacheTTL    time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	abool := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}
	return Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotelfinder?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		Headless:    abool("HEADLESS", true),
		MaxPages:    int64(atoi("BROWSER_PAGES", 4)),
		NavTimeout:  time.Duration(atoi("NAV_TIMEOUT_SECONDS", 30)) * time.Second,
		ScrollPass:  atoi("SCROLL_PASSES", 5),
		SettleDelay: time.Duration(atoi("SCROLL_SETTLE_MS", 2000)) * time.Millisecond,
		SearchRPS:   atoi("SEARCH_RPS", 1),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 30)) * time.Second,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
