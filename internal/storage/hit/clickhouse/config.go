package clickhouse

import "time"

type Config struct {
	Addr         string        `mapstructure:"addr"`
	DB           string        `mapstructure:"db"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	Debug        bool          `mapstructure:"debug"`
}
