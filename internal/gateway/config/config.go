package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	ProductName       = "cellgw"
	ConfigFile        = "config.toml"
	DefaultConfigPath = "/etc/" + ProductName + "/" + ConfigFile

	DefaultTrafficLog = "/var/log/" + ProductName + "/modem.log"
)

type LogConfig struct {
	TrafficFile string `toml:"traffic_file,omitempty" comment:"raw modem command/response log, empty disables it"`
	Debug       bool   `toml:"debug"`
}

type MainConfig struct {
	Modem   ModemConfig   `toml:"modem"`
	Power   PowerConfig   `toml:"power"`
	Network NetworkConfig `toml:"network"`
	TCP     TCPConfig     `toml:"tcp"`
	HTTP    HTTPConfig    `toml:"http"`
	Ping    PingConfig    `toml:"ping"`
	Log     LogConfig     `toml:"log"`
}

// New returns a configuration holding every default
func New() *MainConfig {
	return &MainConfig{
		Modem:   defaultModemConfig(),
		Power:   defaultPowerConfig(),
		Network: defaultNetworkConfig(),
		TCP:     defaultTCPConfig(),
		HTTP:    defaultHTTPConfig(),
		Ping:    defaultPingConfig(),
		Log:     LogConfig{TrafficFile: DefaultTrafficLog},
	}
}

type ConfigManager interface {
	lock()
	unlock()
	Verify() error
}

type ConfigManagerKey string

const (
	CMModem   ConfigManagerKey = "modem"
	CMPower   ConfigManagerKey = "power"
	CMNetwork ConfigManagerKey = "network"
	CMTCP     ConfigManagerKey = "tcp"
	CMHTTP    ConfigManagerKey = "http"
	CMPing    ConfigManagerKey = "ping"
)

type ConfigManagerStore map[ConfigManagerKey]ConfigManager

type Manager struct {
	mu sync.RWMutex

	// The actual config, never share this with other code
	config *MainConfig

	// The config manager store (pointers)
	store ConfigManagerStore

	// The config path
	path string
}

func NewManager() *Manager {
	m := &Manager{config: New()}
	m.initStore()
	return m
}

func (m *Manager) initStore() {
	// Each config section manager gets his own locking primitive
	m.store = ConfigManagerStore{
		CMModem:   &ModemConfigManager{BaseConfigManager[ModemConfig]{conf: &m.config.Modem, mgr: m}},
		CMPower:   &PowerConfigManager{BaseConfigManager[PowerConfig]{conf: &m.config.Power, mgr: m}},
		CMNetwork: &NetworkConfigManager{BaseConfigManager[NetworkConfig]{conf: &m.config.Network, mgr: m}},
		CMTCP:     &TCPConfigManager{BaseConfigManager[TCPConfig]{conf: &m.config.TCP, mgr: m}},
		CMHTTP:    &HTTPConfigManager{BaseConfigManager[HTTPConfig]{conf: &m.config.HTTP, mgr: m}},
		CMPing:    &PingConfigManager{BaseConfigManager[PingConfig]{conf: &m.config.Ping, mgr: m}},
	}
}

func section[T ConfigManager](m *Manager, key ConfigManagerKey) T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[key].(T)
	if !ok {
		log.Panic("implementation mistake, config section not found", zap.String("section", string(key)))
	}
	return cm
}

func (m *Manager) Modem() *ModemConfigManager {
	return section[*ModemConfigManager](m, CMModem)
}

func (m *Manager) Power() *PowerConfigManager {
	return section[*PowerConfigManager](m, CMPower)
}

func (m *Manager) Network() *NetworkConfigManager {
	return section[*NetworkConfigManager](m, CMNetwork)
}

func (m *Manager) TCP() *TCPConfigManager {
	return section[*TCPConfigManager](m, CMTCP)
}

func (m *Manager) HTTP() *HTTPConfigManager {
	return section[*HTTPConfigManager](m, CMHTTP)
}

func (m *Manager) Ping() *PingConfigManager {
	return section[*PingConfigManager](m, CMPing)
}

// Log has no runtime modifications, a copy is enough
func (m *Manager) Log() LogConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Log
}

// Load decodes the file over the defaults. A missing file is accepted when
// acceptMissing is set, the defaults apply then.
func (m *Manager) Load(path string, acceptMissing bool) error {
	m.mu.Lock()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, m.config); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && acceptMissing:
		log.Warn("config file not found, using defaults", zap.String("path", path))
	default:
		m.mu.Unlock()
		return err
	}

	m.path = path
	m.mu.Unlock()

	if err := m.Verify(); err != nil {
		return err
	}

	log.Debug("active config", zap.Any("config", m.config), zap.String("path", m.path))
	return nil
}

// Verify checks that all sections contain the mandatory values
func (m *Manager) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, value := range m.store {
		if err := value.Verify(); err != nil {
			return fmt.Errorf("config section [%s]: %w", key, err)
		}
	}
	return nil
}

// Save locks all configs and writes it to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return errors.New("config was not loaded from a file")
	}

	for _, value := range m.store {
		value.lock()
	}

	defer func() {
		for _, value := range m.store {
			value.unlock()
		}
	}()

	configData, err := toml.Marshal(m.config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(m.path, configData, 0o644); err != nil {
		log.Error("failed to write config file", zap.Error(err))
		return err
	}

	return nil
}

type TOMLDuration time.Duration

func (d *TOMLDuration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = TOMLDuration(x)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d TOMLDuration) Value() time.Duration {
	return time.Duration(d)
}
