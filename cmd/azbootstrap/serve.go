package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
	"github.com/Bibi40k/azure-vm-bootstrap/internal/api"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:           "serve",
	Short:         "Serve node provisioning over HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, client, err := loadProvider()
		if err != nil {
			return err
		}
		logger := getLogger()
		srv := api.New(client, api.Options{
			Provider: file.Provider.Name,
			Defaults: file.Defaults,
			Nodes:    file.Nodes,
			Observer: event.NewSlogObserver(logger),
			Logger:   logger,
		})

		signal.Stop(mainSigCh)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Listen(serveListen) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", configs.Defaults.API.Listen, "Address to listen on")
}
