package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veilmark/internal/server"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 8017, "HTTP listen port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the watermarking HTTP API",
	Long:  "Runs veilmark as an HTTP service exposing apply, detect, and strip endpoints.\nSupports hot-reload of the watermark config file.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(server.Config{
		Port:       servePort,
		ConfigPath: configPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hot-reload watcher for the config file
	if configPath != "" {
		reloader, err := server.NewReloader(srv, []string{configPath})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down watermark server...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "veilmark server listening on :%d\n", servePort)
	if configPath != "" {
		fmt.Fprintf(os.Stderr, "Config: %s (hot-reload enabled)\n", configPath)
	}
	fmt.Fprintf(os.Stderr, "Config hash: %s\n\n", srv.ConfigHash())

	return srv.Start(ctx)
}
