package main

import (
	"context"
	"flag"
	"log"

	"github.com/mwelling79/pumpwatch/pkg/cloud"
	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/lifecycle"
)

func main() {
	configPath := flag.String("config", "/etc/pumpwatch/pumpwatch.json", "Path to config file")
	flag.Parse()

	var cfg config.Config
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	server, err := cloud.NewServer(&cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	opts := &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		HealthAddr:  cfg.HealthAddr,
		ServiceName: "pumpwatch",
		Service:     server,
		Handler:     server.APIServer().Router(),
	}

	if err := lifecycle.RunServer(context.Background(), opts); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
