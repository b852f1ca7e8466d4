package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/nroccia/go-bluez-api/logger"
)

const (
	AppName     = "bluez-api"
	AppVersion  = "0.1.0"
	serviceType = "_http._tcp"
	domain      = "local."
)

type Config struct {
	Api       *ApiConfig
	Bluetooth *BluetoothConfig
	Zeroconf  *ZeroConfig
	LogLevel  logger.Level
}

type ApiConfig struct {
	Enabled bool
	Listens []string
	CORS    *CORSConfig
}

type CORSConfig struct {
	Origins []string
}

type BluetoothConfig struct {
	// Adapter is an explicit BlueZ adapter object path (e.g. /org/bluez/hci0).
	// Empty means "first adapter reported by ObjectManager".
	Adapter string
	Timeout time.Duration
	Connect ConnectConfig
	Rfkill  RfkillConfig
}

type ConnectConfig struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type RfkillConfig struct {
	SysfsDir string
	Device   string
}

type ZeroConfig struct {
	Enabled      bool
	InstanceName string
	ServiceType  string
	Domain       string
	Port         int
	TxtRecords   []string
	Listen       []net.Interface
}

// parseLogLevel converts a string to a logger.Level
func parseLogLevel(levelStr string) logger.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return logger.DEBUG
	case "INFO":
		return logger.INFO
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	case "FATAL":
		return logger.FATAL
	default:
		return logger.WARN // default
	}
}

func interfaceForIP(ip string) (*net.Interface, error) {
	if ip == "" || ip == "127.0.0.1" || ip == "localhost" {
		return nil, nil
	}
	listenIP := net.ParseIP(ip)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid bind: %s", ip)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ifaceIP net.IP

			switch v := addr.(type) {
			case *net.IPNet:
				ifaceIP = v.IP
			case *net.IPAddr:
				ifaceIP = v.IP
			}

			if ifaceIP != nil && ifaceIP.Equal(listenIP) {
				return &iface, nil
			}
		}
	}

	return nil, fmt.Errorf("no interface found for IP %s", ip)
}

// splitListen extracts the host and port of a listen address such as
// "127.0.0.1:8089" or ":8089". An unparseable port yields 0.
func splitListen(listen string) (string, int) {
	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return "", 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

func New() (*Config, error) {
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listens", []string{"127.0.0.1:8089"})
	viper.SetDefault("api.cors.origins", []string{})

	viper.SetDefault("bluetooth.adapter", "")
	viper.SetDefault("bluetooth.timeout", "5s")
	viper.SetDefault("bluetooth.connect.attempts", 5)
	viper.SetDefault("bluetooth.connect.backoff", "500ms")
	viper.SetDefault("bluetooth.connect.maxBackoff", "10s")
	viper.SetDefault("bluetooth.rfkill.sysfs", "/sys/class/rfkill")
	viper.SetDefault("bluetooth.rfkill.device", "/dev/rfkill")

	viper.SetDefault("zeroconf.enabled", true)
	viper.SetDefault("LogLevel", "WARN")

	// Load from configuration file, environment variables, and CLI flags
	viper.SetConfigName("config")                       // name of config file (without extension)
	viper.SetConfigType("yaml")                         // config file format
	viper.AddConfigPath(filepath.Join("/etc", AppName)) // Global configuration path
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", AppName)) // User config path
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with defaults if not found
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			logger.Warn("failed to read config: %v", err)
		}
	}

	listens := viper.GetStringSlice("api.listens")
	if len(listens) == 0 {
		return nil, fmt.Errorf("api.listens must not be empty")
	}
	host, port := splitListen(listens[0])
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid listen address: %s", listens[0])
	}

	var interfaces []net.Interface
	inet, err := interfaceForIP(host)
	if err == nil && inet != nil {
		interfaces = append(interfaces, *inet)
	}

	var cors *CORSConfig
	if origins := viper.GetStringSlice("api.cors.origins"); len(origins) > 0 {
		cors = &CORSConfig{Origins: origins}
	}

	apiCfg := ApiConfig{
		Enabled: viper.GetBool("api.enabled"),
		Listens: listens,
		CORS:    cors,
	}

	btTimeout := viper.GetDuration("bluetooth.timeout")
	if btTimeout <= 0 {
		btTimeout = 5 * time.Second
	}

	btCfg := BluetoothConfig{
		Adapter: viper.GetString("bluetooth.adapter"),
		Timeout: btTimeout,
		Connect: ConnectConfig{
			Attempts:   viper.GetInt("bluetooth.connect.attempts"),
			Backoff:    viper.GetDuration("bluetooth.connect.backoff"),
			MaxBackoff: viper.GetDuration("bluetooth.connect.maxBackoff"),
		},
		Rfkill: RfkillConfig{
			SysfsDir: viper.GetString("bluetooth.rfkill.sysfs"),
			Device:   viper.GetString("bluetooth.rfkill.device"),
		},
	}
	btCfg.Connect.normalize()

	zerocfg := ZeroConfig{
		Enabled:      viper.GetBool("zeroconf.enabled"),
		InstanceName: AppName,
		ServiceType:  serviceType,
		Port:         port,
		Domain:       domain,
		TxtRecords:   []string{"version=" + AppVersion},
		Listen:       interfaces,
	}

	cfg := Config{
		Api:       &apiCfg,
		Bluetooth: &btCfg,
		Zeroconf:  &zerocfg,
		LogLevel:  parseLogLevel(viper.GetString("LogLevel")),
	}

	// Live log-level adjustment: the only setting safe to change under a
	// running coordinator.
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config reloaded from %s", e.Name)
		logger.SetLevel(parseLogLevel(viper.GetString("LogLevel")))
	})
	viper.WatchConfig()

	return &cfg, nil
}

// normalize clamps the connect retry policy to sane values.
func (c *ConnectConfig) normalize() {
	if c.Attempts <= 0 {
		c.Attempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.Backoff {
		c.MaxBackoff = 10 * time.Second
	}
}
