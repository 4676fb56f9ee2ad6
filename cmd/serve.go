package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/webui"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local web API",
	Long: `Serve the generation pipeline over HTTP on localhost:

  POST /api/generate   generate a dialogue
  POST /api/style      restyle a dialogue
  POST /api/validate   check turn count and first speaker
  GET  /api/agents     list agents
  GET  /health         liveness
  GET  /ws             websocket stream of pipeline events`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(true)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = webui.FindAvailablePort(webui.DefaultPort)
		}
		server := webui.NewServer(webui.ServerConfig{
			Invoker:  app.invoker,
			Config:   app.config,
			EventBus: events.NewEventBus(),
			Logger:   app.logger,
			Port:     port,
		})

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := server.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🌐 Web UI available at http://localhost:%d\n", server.GetPort())

		<-ctx.Done()
		fmt.Fprintln(cmd.OutOrStdout(), "\n🛑 Shutting down...")
		return server.Shutdown()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, fmt.Sprintf("port to listen on (default: first free port from %d)", webui.DefaultPort))
}

