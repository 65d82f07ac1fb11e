package main

import (
	"context"
	"flag"
	"log"

	"github.com/webshopd/shopnotify/internal/config"
	delivery "github.com/webshopd/shopnotify/internal/delivery/http"
	"github.com/webshopd/shopnotify/internal/dispatch"
	"github.com/webshopd/shopnotify/internal/push"
	"github.com/webshopd/shopnotify/internal/realtime"
	"github.com/webshopd/shopnotify/internal/telegram"
	"github.com/webshopd/shopnotify/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	token := flag.String("token", "", "Session token: connect and subscribe immediately")
	flag.Parse()

	cfg, cfgMutex, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loadConfig error: %v", err)
	}
	saveConfig := func() error {
		return config.SaveConfig(*configPath, cfg)
	}

	var notifier worker.Notifier
	var sinks []dispatch.AlertSink
	if cfg.Main.TelegramToken != "" {
		bot, err := telegram.InitTelegram(cfg)
		if err != nil {
			log.Fatalf("telegram init error: %v", err)
		}
		sink := telegram.NewSink(bot, cfg, cfgMutex)
		notifier = sink
		sinks = append(sinks, sink)
	}

	caps := push.ProbeCapabilities(cfg, cfgMutex, notifier != nil)

	relay := push.NewRelayClient(cfg, cfgMutex, saveConfig)
	if caps.PushSupported {
		relay.Start()
	}

	receiver := worker.New(relay.Notifications(), relay, notifier, nil, cfg, cfgMutex)
	go receiver.Run(context.Background())

	manager := push.NewManager(
		cfg, cfgMutex, saveConfig,
		relay,
		push.NewBackendClient(cfg.Main.BackendURL),
		&push.PolicyPrompter{Config: cfg, ConfigMutex: cfgMutex, SaveConfig: saveConfig},
		caps,
	)

	client := realtime.NewClient(cfg.Main.RealtimeURL)
	bridge := dispatch.New(client, sinks...)

	if *token != "" {
		if err := client.Connect(*token); err != nil {
			log.Printf("initial connect failed: %v", err)
		} else if err := bridge.Bind(); err != nil {
			log.Printf("bridge bind failed: %v", err)
		}
		go func() {
			if _, err := manager.Subscribe(context.Background(), *token); err != nil {
				log.Printf("push subscribe failed: %v", err)
			}
		}()
	}

	handler := delivery.NewHandler(client, manager, bridge, receiver)
	delivery.StartWebServer(handler, cfg.Main.ListenPort)
}
