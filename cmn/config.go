package cmn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

const VERSION = "0.3.0"
const LOG_NAME = "stakezil.log"
const CONFIG_NAME = "config.yaml"

var DataFolder = "data"
var AppName = "stakezil"
var LogPath = LOG_NAME
var ConfPath = CONFIG_NAME

var ConfigChanged = false

type SConfig struct {
	Verbosity               string        `yaml:"verbosity"`                 // log verbosity
	Listen                  string        `yaml:"listen"`                    // page bridge listen address
	RPCURL                  string        `yaml:"rpc_url"`                   // Zilliqa EVM JSON-RPC endpoint
	ChainId                 int           `yaml:"chain_id"`                  // expected chain id of rpc_url
	RPCRateLimit            int           `yaml:"rpc_rate_limit"`            // calls per second, 0 = auto
	StakingMinZil           string        `yaml:"staking_min_zil"`           // zero-fee threshold, ZIL
	AffiliateDefaultPercent string        `yaml:"affiliate_default_percent"` // fee for non-eligible users
	AffiliateRecipient      string        `yaml:"affiliate_recipient"`       // EVM fee recipient
	ReferralCode            int           `yaml:"referral_code"`             // 0 = none
	WidgetScriptSrc         string        `yaml:"widget_script_src"`         // deBridge widget bootstrap script
	WidgetElementId         string        `yaml:"widget_element_id"`         // DOM anchor of the widget
	DiscoveryWindow         time.Duration `yaml:"discovery_window"`          // EIP-6963 announce window
	RefreshDebounce         time.Duration `yaml:"refresh_debounce"`          // provider event debounce
	MinRefreshInterval      time.Duration `yaml:"min_refresh_interval"`      // min time between active wallet refreshes
	BusTimeout              time.Duration `yaml:"bus_timeout"`               // timeout for page requests
	RewardsBackend          string        `yaml:"rewards_backend"`           // file | redis
	RedisURL                string        `yaml:"redis_url"`                 // used by the redis rewards backend
}

var Config *SConfig = &SConfig{ //Default config
	Verbosity:               "debug",
	Listen:                  "127.0.0.1:9324",
	RPCURL:                  ZIL_EVM_RPC,
	ChainId:                 CHAIN_ZIL_EVM,
	StakingMinZil:           "20000",
	AffiliateDefaultPercent: "0.1",
	AffiliateRecipient:      AFFILIATE_EVM_RECIPIENT,
	ReferralCode:            REFERRAL_CODE,
	WidgetScriptSrc:         DEBRIDGE_SCRIPT_SRC,
	WidgetElementId:         DEBRIDGE_WIDGET_ELEMENT_ID,
	DiscoveryWindow:         1 * time.Second,
	RefreshDebounce:         300 * time.Millisecond,
	MinRefreshInterval:      1 * time.Second,
	BusTimeout:              30 * time.Second,
	RewardsBackend:          "file",
	RedisURL:                "redis://127.0.0.1:6379/0",
}

// InitConfig prepares the data folder, the log file and restores config.yaml.
// An empty folder selects the per-OS default.
func InitConfig(folder string) error {
	var err error

	if folder == "" {
		folder, err = GetDataFolder()
		if err != nil {
			return fmt.Errorf("error getting data folder: %w", err)
		}
	} else if err = os.MkdirAll(folder, os.ModePerm); err != nil {
		return fmt.Errorf("error creating data folder: %w", err)
	}
	DataFolder = folder

	// Init logger
	LogPath = filepath.Join(DataFolder, LOG_NAME)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logFile, err := os.OpenFile(LogPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666) // truncate log file
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	InitLogger(logFile)

	//Restore config from yaml file
	ConfPath = filepath.Join(DataFolder, CONFIG_NAME)
	err = RestoreConfig(ConfPath)
	if err != nil {
		log.Error().Msgf("error restoring config: %v", err)
	}

	SetVerbosity(Config.Verbosity)

	log.Trace().Msg("Started")
	return nil
}

func InitLogger(out io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, NoColor: true})
}

func SetVerbosity(v string) {
	level, err := zerolog.ParseLevel(v)
	if err != nil || v == "" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Info().Msgf("Log level: %s", level)
}

func SaveConfig() error {
	if !ConfigChanged {
		return nil
	}

	data, err := yaml.Marshal(Config)
	if err != nil {
		return err
	}

	err = os.WriteFile(ConfPath, data, 0666)
	if err != nil {
		return err
	}

	ConfigChanged = false
	return nil
}

func RestoreConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// it is ok. Let's use default config
			log.Warn().Msgf("no config file found: %v", err)
			return nil
		}
		return err
	}

	return yaml.Unmarshal(data, Config)
}

func GetDataFolder() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "windows":
		// Get the local app data folder
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", fmt.Errorf("LOCALAPPDATA environment variable is not set")
		}
		dataDir = filepath.Join(localAppData, AppName)
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting home directory: %v", err)
		}
		dataDir = filepath.Join(homeDir, "Library", "Application Support", AppName)
	case "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting home directory: %v", err)
		}
		dataDir = filepath.Join(homeDir, "."+AppName)
	default:
		return "", fmt.Errorf("unsupported operating system")
	}

	// Create the directory if it doesn't exist
	err := os.MkdirAll(dataDir, os.ModePerm)
	if err != nil {
		return "", fmt.Errorf("error creating data directory: %v", err)
	}

	return dataDir, nil
}
