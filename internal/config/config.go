package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envDevices               = "CS_DEVICES"
	envDevicesFile           = "CS_DEVICES_FILE"
	envSSHUsername           = "CS_SSH_USERNAME"
	envSSHPassword           = "CS_SSH_PASSWORD"
	envSSHPort               = "CS_SSH_PORT"
	envSSHPrivateKeyFile     = "CS_SSH_PRIVATE_KEY_FILE"
	envSSHKnownHosts         = "CS_SSH_KNOWN_HOSTS"
	envSSHInsecureSkipVerify = "CS_SSH_INSECURE_SKIP_VERIFY"
	envCommand               = "CS_COMMAND"
	envConnectTimeout        = "CS_CONNECT_TIMEOUT"
	envCommandTimeout        = "CS_COMMAND_TIMEOUT"
	envBackupDir             = "CS_BACKUP_DIR"
	envMaxBackups            = "CS_MAX_BACKUPS"
	envConcurrency           = "CS_CONCURRENCY"
	envGitDisabled           = "CS_GIT_DISABLED"
	envTelegramBotToken      = "CS_TELEGRAM_BOT_TOKEN"
	envTelegramChatID        = "CS_TELEGRAM_CHAT_ID"
	envSlackWebhookURL       = "CS_SLACK_WEBHOOK_URL"
	envNotifyDryRun          = "CS_NOTIFY_DRY_RUN"
	envPushgatewayURL        = "CS_PUSHGATEWAY_URL"
	envLogLevel              = "CS_LOG_LEVEL"
)

const (
	defaultSSHPort        = 22
	defaultCommand        = "show running-config"
	defaultConnectTimeout = 30 * time.Second
	defaultCommandTimeout = 60 * time.Second
	defaultBackupDir      = "/backups"
	defaultMaxBackups     = 10
	defaultConcurrency    = 1
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	Devices               []string
	DevicesFile           string
	SSHUsername           string
	SSHPassword           string
	SSHPort               int
	SSHPrivateKeyFile     string
	SSHKnownHosts         string
	SSHInsecureSkipVerify bool
	Command               string
	ConnectTimeout        time.Duration
	CommandTimeout        time.Duration
	BackupDir             string
	MaxBackups            int
	Concurrency           int
	GitDisabled           bool
	TelegramBotToken      string
	TelegramChatID        string
	SlackWebhookURL       string
	NotifyDryRun          bool
	PushgatewayURL        string
	LogLevel              string
}

// Load reads configuration from environment variables and a local .env file
// if present. Existing environment variables take precedence over .env values.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		SSHPort:        defaultSSHPort,
		Command:        defaultCommand,
		ConnectTimeout: defaultConnectTimeout,
		CommandTimeout: defaultCommandTimeout,
		BackupDir:      defaultBackupDir,
		MaxBackups:     defaultMaxBackups,
		Concurrency:    defaultConcurrency,
	}

	if value, ok := lookupTrimmed(envDevices); ok {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.Devices = append(cfg.Devices, entry)
			}
		}
	}
	if value, ok := lookupTrimmed(envDevicesFile); ok {
		cfg.DevicesFile = value
	}
	if value, ok := lookupTrimmed(envSSHUsername); ok {
		cfg.SSHUsername = value
	}
	if value, ok := lookupTrimmed(envSSHPassword); ok {
		cfg.SSHPassword = value
	}
	if value, ok := lookupTrimmed(envSSHPrivateKeyFile); ok {
		cfg.SSHPrivateKeyFile = value
	}
	if value, ok := lookupTrimmed(envSSHKnownHosts); ok {
		cfg.SSHKnownHosts = value
	}
	if value, ok := lookupTrimmed(envCommand); ok {
		cfg.Command = value
	}
	if value, ok := lookupTrimmed(envBackupDir); ok {
		cfg.BackupDir = value
	}
	if value, ok := lookupTrimmed(envTelegramBotToken); ok {
		cfg.TelegramBotToken = value
	}
	if value, ok := lookupTrimmed(envTelegramChatID); ok {
		cfg.TelegramChatID = value
	}
	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envPushgatewayURL); ok {
		cfg.PushgatewayURL = value
	}
	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	var err error
	if cfg.SSHPort, err = intVar(envSSHPort, cfg.SSHPort, 1); err != nil {
		return Config{}, err
	}
	if cfg.MaxBackups, err = intVar(envMaxBackups, cfg.MaxBackups, 0); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency, err = intVar(envConcurrency, cfg.Concurrency, 1); err != nil {
		return Config{}, err
	}
	if cfg.ConnectTimeout, err = durationVar(envConnectTimeout, cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CommandTimeout, err = durationVar(envCommandTimeout, cfg.CommandTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SSHInsecureSkipVerify, err = boolVar(envSSHInsecureSkipVerify); err != nil {
		return Config{}, err
	}
	if cfg.GitDisabled, err = boolVar(envGitDisabled); err != nil {
		return Config{}, err
	}
	if cfg.NotifyDryRun, err = boolVar(envNotifyDryRun); err != nil {
		return Config{}, err
	}

	if len(cfg.Devices) == 0 && cfg.DevicesFile == "" {
		return Config{}, fmt.Errorf("%s or %s is required", envDevices, envDevicesFile)
	}
	if cfg.SSHUsername == "" {
		return Config{}, fmt.Errorf("%s is required", envSSHUsername)
	}
	if cfg.SSHPassword == "" && cfg.SSHPrivateKeyFile == "" {
		return Config{}, fmt.Errorf("%s or %s is required", envSSHPassword, envSSHPrivateKeyFile)
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := validateURL(cfg.PushgatewayURL, envPushgatewayURL); err != nil {
			return Config{}, err
		}
	}
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == "") {
		return Config{}, fmt.Errorf("%s and %s must be set together", envTelegramBotToken, envTelegramChatID)
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func intVar(key string, fallback, min int) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < min {
		return 0, fmt.Errorf("%s must be at least %d", key, min)
	}
	return parsed, nil
}

func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", key)
	}
	return parsed, nil
}

func boolVar(key string) (bool, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
