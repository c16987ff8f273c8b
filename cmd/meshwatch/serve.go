package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/util"
	"github.com/user/meshwatch/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON control plane",
	Long: `Serve the control plane that dashboards and scripts drive tests
through: start, stop, pause, resume and retest plus status, progress,
log and topology queries.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, feed, source, err := buildEngine()
	if err != nil {
		return err
	}

	port := servePort
	if port == 0 {
		port = cfg.WebPort
	}

	srv := web.NewServer(eng, feed, source, port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Printf("Control plane: http://localhost:%d\n", port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		util.Info("Received %v, shutting down", sig)
		return srv.Stop()
	}
}
