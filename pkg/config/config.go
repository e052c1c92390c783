package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Database   struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Engine struct {
		BatchSize           int           `mapstructure:"BATCH_SIZE"`
		BatchPause          time.Duration `mapstructure:"BATCH_PAUSE"`
		WorkerConcurrency   int           `mapstructure:"WORKER_CONCURRENCY"`
		UnitTimeout         time.Duration `mapstructure:"UNIT_TIMEOUT"`
		DefaultLookbackDays int           `mapstructure:"DEFAULT_LOOKBACK_DAYS"`
		LeaderboardCacheTTL time.Duration `mapstructure:"LEADERBOARD_CACHE_TTL"`
	} `mapstructure:"ENGINE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setEngineDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config file", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}

func setEngineDefaults(v *viper.Viper) {
	v.SetDefault("ENGINE.BATCH_SIZE", 50)
	v.SetDefault("ENGINE.BATCH_PAUSE", 500*time.Millisecond)
	v.SetDefault("ENGINE.WORKER_CONCURRENCY", 8)
	v.SetDefault("ENGINE.UNIT_TIMEOUT", 30*time.Second)
	v.SetDefault("ENGINE.DEFAULT_LOOKBACK_DAYS", 30)
	v.SetDefault("ENGINE.LEADERBOARD_CACHE_TTL", 5*time.Minute)
}
