package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Transport describes how the application reaches the module: a real
// register bus, or the simtransport TCP simulator during development.
type Transport struct {
	Address string
	Port    uint16
	Kind    string
}

// CloudRelay configures the optional Azure sinks a running node can attach
// (see pkgs/cloudrelay). Empty URLs disable the corresponding sink.
type CloudRelay struct {
	QueueURL       string `mapstructure:"queue_url"`
	TableURL       string `mapstructure:"table_url"`
	ProfileBlobURL string `mapstructure:"profile_blob_url"`
}

type Configuration struct {
	Transport  Transport
	CloudRelay CloudRelay

	// Profile describes the contextual provisioning for "the current node"
	Profile Profile
}

// Profile is the staged provisioning data for one node.
type Profile struct {
	JoinMode string `json:"join_mode" yaml:"join_mode" mapstructure:"join_mode"`
	Region   string `json:"region" yaml:"region" mapstructure:"region"`
	AppEUI   string `json:"app_eui" yaml:"app_eui" mapstructure:"app_eui"`
	AppKey   string `json:"app_key" yaml:"app_key" mapstructure:"app_key"`
	NwkSKey  string `json:"nwk_skey" yaml:"nwk_skey" mapstructure:"nwk_skey"`
	AppSKey  string `json:"app_skey" yaml:"app_skey" mapstructure:"app_skey"`
	DevAddr  string `json:"dev_addr" yaml:"dev_addr" mapstructure:"dev_addr"`
}

func NewConfig() (*Configuration, error) {
	config := Configuration{}
	config.Profile = Profile{}

	// application configuration
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(".lwnode")
	v.AddConfigPath("$HOME/")
	v.AddConfigPath(".")
	_ = v.SafeWriteConfig()

	v.SetDefault("transport.address", "/dev/ttyUSB0")
	v.SetDefault("transport.port", 0)
	v.SetDefault("transport.kind", "hardware")

	// contextual node configuration (when current working directory is a
	// node directory that contains node.json)
	p := viper.New()
	p.SetConfigType("json")
	p.SetConfigName("node")
	p.AddConfigPath(".")
	p.ReadInConfig()

	// read both configuration files
	if err := v.ReadInConfig(); err != nil {
		return &Configuration{}, fmt.Errorf("cannot parse config: %s", err.Error())
	}
	if err := v.Unmarshal(&config); err != nil {
		return &config, fmt.Errorf("cannot parse config: %s", err.Error())
	}
	if err := p.ReadInConfig(); err != nil {
		// make node.json fully optional
		if !strings.Contains(err.Error(), "Not Found") {
			return &Configuration{}, fmt.Errorf("cannot parse config: %s", err.Error())
		}
	}
	if err := p.Unmarshal(&config.Profile); err != nil {
		return &config, fmt.Errorf("cannot parse config: %s", err.Error())
	}

	return &config, nil
}
