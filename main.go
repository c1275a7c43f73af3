package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antibyte/turtleterm/pkg/auth"
	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/gallery"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/store"
	"github.com/antibyte/turtleterm/pkg/terminal"
	tlsmanager "github.com/antibyte/turtleterm/pkg/tls"
)

func main() {
	configPath := flag.String("config", "settings.cfg", "configuration file")
	checkFile := flag.String("check", "", "validate a script file and exit")
	svgFile := flag.String("svg", "", "render a script file as SVG to stdout and exit")
	title := flag.String("title", "", "SVG document title for -svg")
	repl := flag.Bool("repl", false, "start an interactive prompt")
	flag.Parse()

	if *checkFile != "" || *svgFile != "" || *repl {
		configuration.InitializeDefaults()
		if _, err := os.Stat(*configPath); err == nil {
			if err := configuration.Initialize(*configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading configuration: %v\n", err)
				os.Exit(2)
			}
		}
		logger.InitializeWriter(os.Stderr)
		logger.DisableArea(logger.AreaInterpreter)
		switch {
		case *checkFile != "":
			os.Exit(checkCommand(os.Stdout, *checkFile))
		case *repl:
			os.Exit(replCommand())
		}
		os.Exit(svgCommand(os.Stdout, *svgFile, *title))
	}

	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Printf("Error initializing configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("turtleterm starting, configuration loaded from %s", *configPath)

	if err := run(); err != nil {
		logger.Error(logger.AreaGeneral, "Server stopped: %v", err)
		os.Exit(1)
	}
	logger.Info(logger.AreaGeneral, "Server stopped")
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(configuration.GetString("Database", "path", "turtleterm.db"))
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer db.Close()

	samples, err := gallery.Load()
	if err != nil {
		return err
	}
	if _, err := gallery.Seed(ctx, db, auth.GuestOwner, samples); err != nil {
		return err
	}

	sessions := resources.NewSessionManager()
	sessions.StartPeriodicCleanup(ctx, time.Minute)

	tlsManager, err := tlsmanager.NewManager(tlsmanager.LoadSettings())
	if err != nil {
		return err
	}

	term := terminal.NewHandler(sessions, db)
	defer term.Shutdown()

	mux := routes(auth.NewHandler(db), term, sessions)
	addr := configuration.GetString("Server", "listen_addr", ":8080")
	return tlsManager.ListenAndServe(ctx, addr, mux)
}

func routes(authHandler *auth.Handler, term *terminal.Handler, sessions *resources.SessionManager) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/session", authHandler.HandleCreateSession)
	mux.HandleFunc("/api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("/api/auth/validate", authHandler.HandleTokenValidation)
	mux.HandleFunc("/api/auth/logout", authHandler.HandleLogout)

	mux.HandleFunc("/api/check", terminal.HandleCheck)
	mux.HandleFunc("/api/render.svg", terminal.HandleRenderSVG)
	mux.HandleFunc("/api/stats", auth.RequireToken(statsHandler(term, sessions)))
	mux.HandleFunc("/ws", term.HandleWebSocket)

	staticDir := configuration.GetString("Server", "static_dir", "./static")
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

func statsHandler(term *terminal.Handler, sessions *resources.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := sessions.GetSessionStats()
		stats["connected_clients"] = term.ClientCount()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
