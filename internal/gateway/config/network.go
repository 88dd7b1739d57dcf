package config

import (
	"errors"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
)

type NetworkConfig struct {
	APN           string       `toml:"apn"`
	NetworkMode   int          `toml:"network_mode" comment:"AT+CNMP value, 38 is LTE only"`
	NBMode        int          `toml:"nb_mode" comment:"AT+CMNB value, 1 Cat-M, 2 NB-IoT, 3 both"`
	AttachTimeout TOMLDuration `toml:"attach_timeout,omitempty"`
	AttachPoll    TOMLDuration `toml:"attach_poll,omitempty"`
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		APN:           sim7070.DefaultAPN,
		NetworkMode:   sim7070.DefaultNetworkMode,
		NBMode:        sim7070.DefaultNBMode,
		AttachTimeout: TOMLDuration(sim7070.DefaultAttachTimeout),
		AttachPoll:    TOMLDuration(sim7070.DefaultAttachPoll),
	}
}

// Options converts the section into modem options
func (c NetworkConfig) Options() sim7070.Options {
	return sim7070.Options{
		APN:           c.APN,
		NetworkMode:   c.NetworkMode,
		NBMode:        c.NBMode,
		AttachTimeout: c.AttachTimeout.Value(),
		AttachPoll:    c.AttachPoll.Value(),
	}
}

type NetworkConfigManager struct {
	BaseConfigManager[NetworkConfig]
}

func (a *NetworkConfigManager) Verify() error {
	if a.conf.APN == "" {
		return errors.New("empty apn")
	}
	if a.conf.AttachTimeout < 0 || a.conf.AttachPoll < 0 {
		return errors.New("negative attach timing")
	}
	return nil
}
