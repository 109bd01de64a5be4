package config

import (
	"flag"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

const (
	ProductName = "sondewatch"

	ConfigFile        = "station.toml"
	DefaultConfigPath = "/etc/" + ProductName + "/" + ConfigFile

	DefaultLogDir = "log/"

	DefaultDebugModeValue = false
)

type CLIFlags struct {
	ConfigPath string
	// Fixed receive frequency in MHz, bypasses the band scan when > 0
	FrequencyMHz float64
	Debug        bool
}

type MainConfig struct {
	Client  ClientConfig  `toml:"client"`
	Sdr     SdrConfig     `toml:"sdr,omitempty"`
	Search  SearchConfig  `toml:"search"`
	Gps     GpsConfig     `toml:"gps,omitempty"`
	Aprs    AprsConfig    `toml:"aprs,omitempty"`
	Habitat HabitatConfig `toml:"habitat,omitempty"`
	Storage StorageConfig `toml:"storage,omitempty"`
}

type ConfigManager interface {
	lock()
	unlock()
	Verify() error
}

type ConfigManagerKey string

const (
	CMClient  ConfigManagerKey = "client"
	CMSdr     ConfigManagerKey = "sdr"
	CMSearch  ConfigManagerKey = "search"
	CMGps     ConfigManagerKey = "gps"
	CMAprs    ConfigManagerKey = "aprs"
	CMHabitat ConfigManagerKey = "habitat"
	CMStorage ConfigManagerKey = "storage"
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

func (m *Manager) Client() *ClientConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMClient].(*ClientConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMClient found")
		return nil
	}
	return cm
}

func (m *Manager) Sdr() *SdrConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMSdr].(*SdrConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMSdr found")
		return nil
	}
	return cm
}

func (m *Manager) Search() *SearchConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMSearch].(*SearchConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMSearch found")
		return nil
	}
	return cm
}

func (m *Manager) Gps() *GpsConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMGps].(*GpsConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMGps found")
		return nil
	}
	return cm
}

func (m *Manager) Aprs() *AprsConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMAprs].(*AprsConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMAprs found")
		return nil
	}
	return cm
}

func (m *Manager) Habitat() *HabitatConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMHabitat].(*HabitatConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMHabitat found")
		return nil
	}
	return cm
}

func (m *Manager) Storage() *StorageConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMStorage].(*StorageConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMStorage found")
		return nil
	}
	return cm
}

func (m *Manager) Load(path string, acceptEmptyConfig bool) error {
	data, err := os.ReadFile(path)
	if err == nil {
		if err = toml.Unmarshal(data, m.config); err != nil {
			log.Error("failed to unmarshal config file", zap.Error(err))
		}
	}

	if err != nil && !acceptEmptyConfig {
		return err
	}

	// Store the load path
	m.path = path

	// Each config section manager gets his own locking primitive
	m.store = ConfigManagerStore{
		CMClient:  NewClientConfigManager(&m.config.Client, m),
		CMSdr:     NewSdrConfigManager(&m.config.Sdr, m),
		CMSearch:  NewSearchConfigManager(&m.config.Search, m),
		CMGps:     NewGpsConfigManager(&m.config.Gps, m),
		CMAprs:    NewAprsConfigManager(&m.config.Aprs, m),
		CMHabitat: NewHabitatConfigManager(&m.config.Habitat, m),
		CMStorage: NewStorageConfigManager(&m.config.Storage, m),
	}

	// Verify all configs contain the mandatory values
	for _, value := range m.store {
		if err := value.Verify(); err != nil {
			return err
		}
	}

	// Debug log output
	log.Debug("active config", zap.Any("config", m.config), zap.String("path", m.path))

	return nil
}

func New() *MainConfig {
	return &MainConfig{}
}

func NewManager() *Manager {
	return &Manager{
		mu:     sync.RWMutex{},
		store:  make(ConfigManagerStore),
		config: New(),
	}
}

func ParseCLIFlags() CLIFlags {
	flags := CLIFlags{}

	flag.StringVar(&flags.ConfigPath, "config", DefaultConfigPath, "relative or absolute path to the station config file")
	flag.Float64Var(&flags.FrequencyMHz, "frequency", 0.0, "sonde frequency in MHz, bypasses the band scan")
	flag.BoolVar(&flags.Debug, "debug", DefaultDebugModeValue, "true if the debug logging should be enabled")

	flag.Parse()

	return flags
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

func (c TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(c).String()), nil
}

func (c TOMLDuration) Value() time.Duration {
	return time.Duration(c)
}
