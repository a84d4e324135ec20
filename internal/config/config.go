package config

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subfrost/brc20shrew/common"
	brc20config "github.com/subfrost/brc20shrew/modules/brc20/config"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

var (
	parseOnce sync.Once
	config    = Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		BitcoinNode: BitcoinNodeClient{
			User: "user",
			Pass: "pass",
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
	}
)

type Config struct {
	Logger        logger.Config     `mapstructure:"logger"`
	BitcoinNode   BitcoinNodeClient `mapstructure:"bitcoin_node"`
	Network       common.Network    `mapstructure:"network"`
	APIOnly       bool              `mapstructure:"api_only"`
	EnableModules []string          `mapstructure:"enable_modules"`
	HTTPServer    HTTPServerConfig  `mapstructure:"http_server"`
	Modules       Modules           `mapstructure:"modules"`
}

type BitcoinNodeClient struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	DisableTLS bool   `mapstructure:"disable_tls"`
}

type HTTPServerConfig struct {
	Port int `mapstructure:"port"`
}

type Modules struct {
	BRC20 brc20config.Config `mapstructure:"brc20"`
}

// BindPFlag binds a command-line flag to a configuration key.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Failed to bind flag to configuration", slogx.String("key", key))
	}
}

// Parse reads the configuration file (if any) and environment variables into
// the process-wide configuration. Subsequent calls return the first result.
func Parse(configFile string) Config {
	parseOnce.Do(func() {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.AddConfigPath("./")
			viper.SetConfigName("config")
		}

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &errNotFound) {
				logger.Panic("Invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&config); err != nil {
			logger.Panic("Failed to unmarshal config", slogx.Error(err))
		}
	})
	return config
}

// Load returns the parsed configuration.
func Load() Config {
	return Parse("")
}
