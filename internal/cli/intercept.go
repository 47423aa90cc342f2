package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veilmark/internal/intercept"
)

var (
	interceptPort     int
	interceptUpstream string
)

func init() {
	rootCmd.AddCommand(interceptCmd)
	interceptCmd.Flags().IntVar(&interceptPort, "port", 9999, "Port to listen on")
	interceptCmd.Flags().StringVar(&interceptUpstream, "upstream", "https://api.anthropic.com", "Upstream LLM API URL")
}

var interceptCmd = &cobra.Command{
	Use:   "intercept",
	Short: "Start reverse proxy watermarking LLM responses",
	Long:  "Reverse proxy between client and LLM API that embeds the invisible watermark\ninto assistant text in responses, streaming and non-streaming.\nUsage: ANTHROPIC_BASE_URL=http://localhost:9999 python agent.py",
	RunE:  runIntercept,
}

func runIntercept(cmd *cobra.Command, args []string) error {
	srv, err := intercept.NewServer(intercept.Config{
		Port:       interceptPort,
		Upstream:   interceptUpstream,
		ConfigPath: configPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create interceptor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down interceptor...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "veilmark interceptor listening on :%d\n", interceptPort)
	fmt.Fprintf(os.Stderr, "Upstream: %s\n", interceptUpstream)
	fmt.Fprintf(os.Stderr, "Set ANTHROPIC_BASE_URL=http://localhost:%d to route traffic\n", interceptPort)
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop")
	fmt.Fprintln(os.Stderr)

	return srv.Start(ctx)
}
