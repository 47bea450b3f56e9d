package config

import (
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
		}

		err = viper.MergeInConfig()
		if err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stringOr(key, fallback string) string {
	initConfig()
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

// GetForecastApiUrl returns the daily forecast endpoint, without query parameters.
func GetForecastApiUrl() string {
	return stringOr("openweathermap.forecast_url", "https://api.openweathermap.org/data/2.5/forecast/daily")
}

// GetIconBaseUrl returns the path prefix condition icons are fetched from.
func GetIconBaseUrl() string {
	return stringOr("openweathermap.icon_url", "http://openweathermap.org/img/w/")
}

func GetIconExtension() string {
	return stringOr("openweathermap.icon_extension", ".png")
}

func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("OPENWEATHERMAP_API_KEY")
}

// GetUnits returns the unit system literal sent to the API (imperial, metric or standard).
func GetUnits() string {
	return stringOr("forecast.units", "imperial")
}

// GetForecastDays returns the number of days requested per call. Defaults to 16.
func GetForecastDays() int {
	initConfig()
	days := viper.GetInt("forecast.days")
	if days <= 0 {
		return 16
	}
	return days
}

// GetTimeZone returns the location day names are computed in.
// An empty, "Local" or unknown zone name falls back to time.Local.
func GetTimeZone() *time.Location {
	name := stringOr("forecast.timezone", "Local")
	if name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		GetLogger().Warnw("Unknown time zone, using local", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// GetControllerWorkers returns how many network/decode tasks may run at once.
func GetControllerWorkers() int {
	initConfig()
	n := viper.GetInt("controller.workers")
	if n <= 0 {
		return 4
	}
	return n
}

// GetIconCacheBackend returns "memory" or "redis".
func GetIconCacheBackend() string {
	return stringOr("icon_cache.backend", "memory")
}

func GetRedisAddr() string {
	return stringOr("redis.addr", "localhost:6379")
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

func GetServerTimeout(key string) string {
	initConfig()
	return viper.GetString("server." + key)
}

// GetServerTimeoutDuration parses a server timeout, returning fallback when unset or invalid.
func GetServerTimeoutDuration(key string, fallback time.Duration) time.Duration {
	dur, err := time.ParseDuration(GetServerTimeout(key))
	if err != nil {
		return fallback
	}
	return dur
}

// GetTestRedisMockPort returns the address the integration suite starts miniredis on.
func GetTestRedisMockPort() string {
	return stringOr("test.redis_mock_port", ":16379")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	durStr := viper.GetString("rate_limiter.cleanup_timeout")
	if durStr == "" {
		durStr = "3m"
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		return 3 * time.Minute
	}
	return dur
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter from config.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the param rate limiter from config.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}
