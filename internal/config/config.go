package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/webshopd/shopnotify/internal/domain"
)

func LoadConfig(configPath string) (*domain.Config, *sync.RWMutex, error) {
	var config domain.Config
	configMutex := &sync.RWMutex{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configMutex.Lock()
		config.Main.BackendURL = domain.DefaultBackendURL
		config.Main.RealtimeURL = domain.DefaultRealtimeURL
		config.Main.PushRelayURL = domain.DefaultPushRelayURL
		config.Main.ListenPort = 9090
		config.Main.PermissionPolicy = domain.PermissionPolicyAsk
		configMutex.Unlock()
		if err := SaveConfig(configPath, &config); err != nil {
			return nil, nil, err
		}
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := yaml.Unmarshal(b, &config); err != nil {
		return nil, nil, err
	}
	if config.Main.BackendURL == "" {
		config.Main.BackendURL = domain.DefaultBackendURL
	}
	if config.Main.RealtimeURL == "" {
		config.Main.RealtimeURL = domain.DefaultRealtimeURL
	}
	if config.Main.PermissionPolicy == "" {
		config.Main.PermissionPolicy = domain.PermissionPolicyAsk
	}
	return &config, configMutex, nil
}

func SaveConfig(configPath string, cfg *domain.Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, b, 0644)
}
