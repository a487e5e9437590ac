package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AgencyConfig carries the business policy knobs that operators tune
// without a redeploy.
type AgencyConfig struct {
	CommissionRateBps     int64 `mapstructure:"commissionRateBps"`
	PauseMinDays          int   `mapstructure:"pauseMinDays"`
	PauseMaxDays          int   `mapstructure:"pauseMaxDays"`
	ExpiringWindowDays    int   `mapstructure:"expiringWindowDays"`
	SelfSubscribeDueDays  int   `mapstructure:"selfSubscribeDueDays"`
	NotificationDetailCap int   `mapstructure:"notificationDetailCap"`
}

func DefaultAgencyConfig() AgencyConfig {
	return AgencyConfig{
		CommissionRateBps:     250,
		PauseMinDays:          3,
		PauseMaxDays:          30,
		ExpiringWindowDays:    7,
		SelfSubscribeDueDays:  30,
		NotificationDetailCap: 10,
	}
}

type AgencyConfigHolder struct {
	current atomic.Value // holds AgencyConfig
}

// NewStaticAgencyConfig returns a holder that never reloads.
func NewStaticAgencyConfig(cfg AgencyConfig) *AgencyConfigHolder {
	holder := &AgencyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAgencyConfigHolder(log *zap.Logger) (*AgencyConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("agency.config")

	v := viper.New()
	v.SetConfigName("agency")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/newsexpress")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NEWSEXPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAgencyConfig()
	v.SetDefault("agency.commissionRateBps", defaults.CommissionRateBps)
	v.SetDefault("agency.pauseMinDays", defaults.PauseMinDays)
	v.SetDefault("agency.pauseMaxDays", defaults.PauseMaxDays)
	v.SetDefault("agency.expiringWindowDays", defaults.ExpiringWindowDays)
	v.SetDefault("agency.selfSubscribeDueDays", defaults.SelfSubscribeDueDays)
	v.SetDefault("agency.notificationDetailCap", defaults.NotificationDetailCap)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg AgencyConfig
	if err := v.UnmarshalKey("agency", &cfg); err != nil {
		return nil, err
	}
	if err := validateAgencyConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticAgencyConfig(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AgencyConfig
		if err := v.UnmarshalKey("agency", &updated); err != nil {
			log.Warn("agency config reload failed", zap.Error(err))
			return
		}
		if err := validateAgencyConfig(updated); err != nil {
			log.Warn("invalid agency config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("agency config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns the active policy. A nil holder yields the defaults.
func (h *AgencyConfigHolder) Get() AgencyConfig {
	if h == nil {
		return DefaultAgencyConfig()
	}
	cfg, ok := h.current.Load().(AgencyConfig)
	if !ok {
		return DefaultAgencyConfig()
	}
	return cfg
}

func validateAgencyConfig(cfg AgencyConfig) error {
	if cfg.CommissionRateBps < 0 || cfg.CommissionRateBps > 10000 {
		return errors.New("agency.commissionRateBps must be between 0 and 10000")
	}
	if cfg.PauseMinDays <= 0 {
		return errors.New("agency.pauseMinDays must be positive")
	}
	if cfg.PauseMaxDays < cfg.PauseMinDays {
		return errors.New("agency.pauseMaxDays must not be below pauseMinDays")
	}
	if cfg.ExpiringWindowDays <= 0 {
		return errors.New("agency.expiringWindowDays must be positive")
	}
	if cfg.SelfSubscribeDueDays < 0 {
		return errors.New("agency.selfSubscribeDueDays cannot be negative")
	}
	return nil
}
