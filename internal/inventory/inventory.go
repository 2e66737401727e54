// Package inventory builds the ordered device target list for a run from
// the configured address list and an optional YAML inventory file.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rfarias/config-sentinel/internal/config"
	"github.com/rfarias/config-sentinel/internal/device"
)

type deviceEntry struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	PrivateKeyFile string `yaml:"private_key_file"`
	Command        string `yaml:"command"`
}

type inventoryFile struct {
	Devices []deviceEntry `yaml:"devices"`
}

// Targets resolves the device set for a run. Addresses from the delimited
// environment list come first, then entries from the inventory file, both in
// declaration order, so iteration order is stable for a given configuration.
// Fleet-wide credentials fill any fields an inventory entry leaves empty.
func Targets(cfg config.Config) ([]device.Target, error) {
	targets := make([]device.Target, 0, len(cfg.Devices))
	for _, address := range cfg.Devices {
		targets = append(targets, device.Target{
			Address:        address,
			Port:           cfg.SSHPort,
			Username:       cfg.SSHUsername,
			Password:       cfg.SSHPassword,
			PrivateKeyFile: cfg.SSHPrivateKeyFile,
		})
	}

	if cfg.DevicesFile != "" {
		fromFile, err := loadFile(cfg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no devices configured")
	}
	return targets, nil
}

func loadFile(cfg config.Config) ([]device.Target, error) {
	data, err := os.ReadFile(cfg.DevicesFile)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", cfg.DevicesFile, err)
	}

	var parsed inventoryFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", cfg.DevicesFile, err)
	}

	targets := make([]device.Target, 0, len(parsed.Devices))
	for i, entry := range parsed.Devices {
		if entry.Address == "" {
			return nil, fmt.Errorf("inventory %s: device %d has no address", cfg.DevicesFile, i)
		}
		target := device.Target{
			Address:        entry.Address,
			Port:           entry.Port,
			Username:       entry.Username,
			Password:       entry.Password,
			PrivateKeyFile: entry.PrivateKeyFile,
			Command:        entry.Command,
		}
		if target.Port <= 0 {
			target.Port = cfg.SSHPort
		}
		if target.Username == "" {
			target.Username = cfg.SSHUsername
		}
		if target.Password == "" && target.PrivateKeyFile == "" {
			target.Password = cfg.SSHPassword
			target.PrivateKeyFile = cfg.SSHPrivateKeyFile
		}
		targets = append(targets, target)
	}
	return targets, nil
}
