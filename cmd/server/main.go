package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"medievalrpg/internal/mcp"
)

func main() {
	mcpMode := flag.Bool("mcp", false, "serve debug tools over MCP stdio instead of the game server")
	flag.Parse()

	app, err := createApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		debugServer := mcp.NewDebugServer(app.saves)
		if err := debugServer.Run(ctx); err != nil {
			log.Fatalf("mcp server: %v", err)
		}
		return
	}

	httpServer := &http.Server{
		Addr:    app.cfg.Addr,
		Handler: app.srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", app.cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
