package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"goscore/internal/config"
	"goscore/internal/daemon"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	force := flag.Bool("force", false, "Stop an existing daemon before starting")
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.Level())

	if daemon.IsRunning() {
		if !*force {
			pid, err := daemon.RunningPID()
			if err != nil {
				log.Fatalf("daemon appears running but pid check failed: %v", err)
			}
			log.Infof("Daemon is already running (pid %d). Use --force to restart.", pid)
			return
		}
		log.Info("Stopping existing daemon...")
		if err := daemon.StopRunningDaemon(true); err != nil {
			log.Fatalf("failed to stop running daemon: %v", err)
		}
	}

	srv, err := daemon.Start(cfg, log)
	if err != nil {
		log.Fatalf("failed to start daemon: %v", err)
	}
	log.WithField("path", srv.Path()).Info("Press Ctrl+C to stop.")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	if err := srv.Close(); err != nil {
		log.Fatalf("error shutting down daemon: %v", err)
	}
}
