// Package config loads the three YAML configuration files that govern a
// chatwire process: the frame widths shared by both peers, and the
// server- or client-specific settings layered on top of them.
//
// A key whose YAML value cannot convert to the declared Go type aborts
// startup. Each loader also checks a fixed set of required keys (see
// LoadShared, LoadServer and LoadClient); a missing one aborts startup.
// Keys outside those sets are not checked: a missing one loads as its
// Go zero value.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SharedConfig mirrors shared_config.yml. Both peers MUST load the same
// values, since frame header widths are not negotiated on the wire.
type SharedConfig struct {
	Packets PacketWidths `yaml:"packets"`
}

// PacketWidths carries the byte widths for each frame header field, in
// lieu of them being hardcoded as in a fixed 14-byte header.
type PacketWidths struct {
	PacketTypeBytes       int `yaml:"packet_type_bytes"`
	PacketIDBytes         int `yaml:"packet_id_bytes"`
	PacketDataLengthBytes int `yaml:"packet_data_length_bytes"`
}

// ServerConfig mirrors server_config.yml.
type ServerConfig struct {
	Database   ServerDatabaseConfig   `yaml:"database"`
	Connection ServerConnectionConfig `yaml:"connection"`
	Registry   ServerRegistryConfig   `yaml:"registry"`
}

// ServerRegistryConfig is optional: an empty Endpoints list disables
// etcd advertisement entirely, so it carries no required-field checks
// of its own (see LoadServer).
type ServerRegistryConfig struct {
	Endpoints     []string `yaml:"endpoints"`
	AdvertiseAddr string   `yaml:"advertise_addr"`
	LeaseSeconds  int64    `yaml:"lease_seconds"`
}

type ServerDatabaseConfig struct {
	Filepath          string `yaml:"filepath"`
	ConnectTimeout    int    `yaml:"connect_timeout"`
	TokenLength       int    `yaml:"token_length"`
	TokenCharset      string `yaml:"token_charset"`
	MinUsernameLength int    `yaml:"min_username_length"`
	MaxUsernameLength int    `yaml:"max_username_length"`
}

type ServerConnectionConfig struct {
	ListenAddress         string `yaml:"listen_address"`
	ListenPort            int    `yaml:"listen_port"`
	AuthenticationTimeout int    `yaml:"authentication_timeout"`
}

// ClientConfig mirrors client_config.yml.
type ClientConfig struct {
	Connection ClientConnectionConfig `yaml:"connection"`
	User       ClientUserConfig       `yaml:"user"`
	Events     ClientEventsConfig     `yaml:"events"`
	GUI        ClientGUIConfig        `yaml:"gui"`
}

type ClientConnectionConfig struct {
	ConnectAddress        string `yaml:"connect_address"`
	ConnectPort           int    `yaml:"connect_port"`
	AuthenticationTimeout int    `yaml:"authentication_timeout"`
}

type ClientUserConfig struct {
	Token string `yaml:"token"`
}

type ClientEventsConfig struct {
	EventIDBytes int `yaml:"event_id_bytes"`
}

type ClientGUIConfig struct {
	HostAddress string `yaml:"host_address"`
	HostPort    int    `yaml:"host_port"`
}

// LoadShared reads and parses shared_config.yml at path.
func LoadShared(path string) (*SharedConfig, error) {
	var cfg SharedConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Packets.PacketTypeBytes <= 0 || cfg.Packets.PacketIDBytes <= 0 || cfg.Packets.PacketDataLengthBytes <= 0 {
		return nil, fmt.Errorf("config: %s: packets.* widths must all be positive", path)
	}
	return &cfg, nil
}

// LoadServer reads and parses server_config.yml at path.
func LoadServer(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.Filepath == "" {
		return nil, fmt.Errorf("config: %s: database.filepath is required", path)
	}
	if cfg.Database.TokenLength <= 0 {
		return nil, fmt.Errorf("config: %s: database.token_length must be positive", path)
	}
	if cfg.Database.TokenCharset == "" {
		return nil, fmt.Errorf("config: %s: database.token_charset is required", path)
	}
	if cfg.Connection.ListenPort <= 0 {
		return nil, fmt.Errorf("config: %s: connection.listen_port must be positive", path)
	}
	if cfg.Connection.AuthenticationTimeout <= 0 {
		return nil, fmt.Errorf("config: %s: connection.authentication_timeout must be positive", path)
	}
	return &cfg, nil
}

// LoadClient reads and parses client_config.yml at path.
func LoadClient(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Connection.ConnectPort <= 0 {
		return nil, fmt.Errorf("config: %s: connection.connect_port must be positive", path)
	}
	if cfg.User.Token == "" {
		return nil, fmt.Errorf("config: %s: user.token is required", path)
	}
	if cfg.Events.EventIDBytes <= 0 {
		return nil, fmt.Errorf("config: %s: events.event_id_bytes must be positive", path)
	}
	return &cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}
