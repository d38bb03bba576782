package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/apexsignal/pitwall"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config, err := pitwall.ReadConfig(configPath)

	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			logger.WithError(err).Fatalf("Could not read config at %s", configPath)
		}

		logger.Infof("No config at %s, using defaults", configPath)
		config = pitwall.DefaultConfig()
	}

	store := pitwall.NewSessionStore()
	handler := pitwall.NewAnalysisHandler(store, config)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.HTTPPort),
		Handler: handler.Router(),
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c

		logger.Infof("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Could not shut down cleanly")
		}
	}()

	logger.Infof("Session analysis server listening on port: %d", config.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Could not run server")
	}

	logger.Infof("Server stopped. Exiting")
}
