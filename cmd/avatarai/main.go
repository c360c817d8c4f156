package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/dkinzer222/avatarai/internal/app"
	"github.com/dkinzer222/avatarai/internal/capture"
	"github.com/dkinzer222/avatarai/internal/events"
	"github.com/dkinzer222/avatarai/internal/server"
	"github.com/dkinzer222/avatarai/internal/tray"
)

func main() {
	addr := flag.String("addr", envOr("AVATARAI_ADDR", ":8080"), "HTTP listen address")
	natsURL := flag.String("nats", os.Getenv("AVATARAI_NATS_URL"), "NATS server URL for gesture and calibration events (empty disables)")
	natsPrefix := flag.String("nats-prefix", events.DefaultPrefix, "NATS subject prefix")
	webDir := flag.String("web", "", "static files directory (default: search common locations)")
	withTray := flag.Bool("tray", false, "show a system tray status menu")
	noFace := flag.Bool("no-face", false, "disable face mesh tracking")
	camera := flag.Int("camera", -1, "track a local camera device in its own session (-1 disables)")
	flag.Parse()

	fmt.Println("AvatarAI - Webcam Avatar Tracking")

	pub := events.NewPublisher(*natsPrefix)
	if *natsURL != "" {
		if err := pub.Connect(*natsURL); err != nil {
			log.Printf("Events disabled: %v", err)
		}
	}

	cfg := app.DefaultConfig()
	cfg.Events = pub
	cfg.Detector.EnableFace = !*noFace
	a := app.New(cfg)
	defer a.Close()

	if *webDir == "" {
		*webDir = findWebDir()
	}
	if *webDir != "" {
		fmt.Printf("Serving static files from: %s\n", *webDir)
	}

	srv := server.New(server.Config{StaticDir: *webDir, App: a})
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv,
	}

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *camera >= 0 {
		go runCamera(ctx, a, srv.Registry(), *camera)
	}

	if *withTray {
		t := tray.New()
		t.OnToggle(a.SetEnabled)
		t.OnOpen(func() { openBrowser(studioURL(*addr)) })
		t.OnQuit(stop)
		a.OnStatus(t.SetStatus)

		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// systray needs the main goroutine
		t.Run()
	} else {
		<-ctx.Done()
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// runCamera tracks a local camera in a dedicated session whose avatar can be
// watched at /api/sessions/{id}/stream.
func runCamera(ctx context.Context, a *app.App, registry *server.Registry, device int) {
	session := a.NewSession()
	registry.Open(session.ID)
	defer func() {
		registry.Remove(session.ID)
		session.Close()
	}()

	cfg := capture.DefaultConfig()
	cfg.DeviceID = device
	feed := capture.NewFeed(cfg, capture.NewCamera(cfg), session, func(jpeg []byte) {
		registry.Publish(session.ID, jpeg)
	})

	fmt.Printf("Camera %d streaming at /api/sessions/%s/stream\n", device, session.ID)
	if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Camera stopped: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// studioURL turns a listen address into a browsable URL.
func studioURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.avatarai/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".avatarai", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
