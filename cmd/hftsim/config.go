package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/0x5487/hftcore"
	"github.com/0x5487/hftcore/protocol"
	"github.com/spf13/viper"
)

// Config is the simulator configuration. Every key can be overridden with an
// HFTSIM_ prefixed environment variable, e.g. HFTSIM_BOOK_NOTIFY_EVERY.
type Config struct {
	LogLevel    string
	MetricsAddr string
	Duration    time.Duration
	Operations  int
	Seed        int64

	Instrument    protocol.Instrument
	MidPrice      hftcore.Price
	PriceLevels   int
	MaxQuantity   uint64
	OrderCapacity int
	LevelCapacity int
	NotifyEvery   int
	IndexLevels   bool
	RingCapacity  int

	DrainBatch int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("duration", "0s")
	v.SetDefault("operations", 1_000_000)
	v.SetDefault("seed", 42)

	v.SetDefault("book.instrument", protocol.InstrumentNote10Y.String())
	v.SetDefault("book.mid_price", "99.5")
	v.SetDefault("book.price_levels", 64)
	v.SetDefault("book.max_quantity", 100)
	v.SetDefault("book.order_capacity", hftcore.DefaultOrderCapacity)
	v.SetDefault("book.level_capacity", hftcore.DefaultLevelCapacity)
	v.SetDefault("book.notify_every", hftcore.DefaultNotifyEvery)
	v.SetDefault("book.index_levels", false)
	v.SetDefault("book.ring_capacity", hftcore.DefaultUpdateCapacity)

	v.SetDefault("drain.batch_size", 256)
}

// LoadConfig reads the optional file named by HFTSIM_CONFIG, then applies
// environment overrides.
func LoadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("HFTSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	instrument, err := protocol.ParseInstrument(v.GetString("book.instrument"))
	if err != nil {
		return nil, err
	}
	mid, err := hftcore.ParsePrice(v.GetString("book.mid_price"))
	if err != nil {
		return nil, fmt.Errorf("book.mid_price: %w", err)
	}

	cfg := &Config{
		LogLevel:      v.GetString("log_level"),
		MetricsAddr:   v.GetString("metrics_addr"),
		Duration:      v.GetDuration("duration"),
		Operations:    v.GetInt("operations"),
		Seed:          v.GetInt64("seed"),
		Instrument:    instrument,
		MidPrice:      mid,
		PriceLevels:   v.GetInt("book.price_levels"),
		MaxQuantity:   v.GetUint64("book.max_quantity"),
		OrderCapacity: v.GetInt("book.order_capacity"),
		LevelCapacity: v.GetInt("book.level_capacity"),
		NotifyEvery:   v.GetInt("book.notify_every"),
		IndexLevels:   v.GetBool("book.index_levels"),
		RingCapacity:  v.GetInt("book.ring_capacity"),
		DrainBatch:    v.GetInt("drain.batch_size"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	var errs []error
	if c.Operations <= 0 && c.Duration <= 0 {
		errs = append(errs, errors.New("either operations or duration must be positive"))
	}
	if c.PriceLevels <= 0 {
		errs = append(errs, errors.New("book.price_levels must be positive"))
	}
	if c.MaxQuantity == 0 {
		errs = append(errs, errors.New("book.max_quantity must be positive"))
	}
	if int64(c.PriceLevels) >= c.MidPrice.Whole()*64 {
		errs = append(errs, errors.New("book.price_levels would reach a non-positive price"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
