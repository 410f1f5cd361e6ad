package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

// GameConfig 对局参数
type GameConfig struct {
	InitialTimeSeconds int `mapstructure:"initial_time_seconds"`
	HandSize           int `mapstructure:"hand_size"`
	MaxPlayers         int `mapstructure:"max_players"`
	CodeLength         int `mapstructure:"code_length"`
}

// SandboxConfig 判题沙箱参数
type SandboxConfig struct {
	PythonBin      string `mapstructure:"python_bin"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"` // gorm 或 pq
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func (g GameConfig) InitialTime() time.Duration {
	return time.Duration(g.InitialTimeSeconds) * time.Second
}

func (s SandboxConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.monitor_address", ":9100")
	viper.SetDefault("game.initial_time_seconds", 300)
	viper.SetDefault("game.hand_size", 5)
	viper.SetDefault("game.max_players", 8)
	viper.SetDefault("game.code_length", 6)
	viper.SetDefault("sandbox.python_bin", "python3")
	viper.SetDefault("sandbox.timeout_seconds", 10)
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.driver", "gorm")

	viper.AutomaticEnv()

	// 配置文件缺省时全部走默认值
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
