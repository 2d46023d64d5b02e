package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/deploy-installer/internal/setup"
)

var (
	addrFlag      string
	noBrowserFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the setup wizard",
	Long: `Serve the four step setup wizard over HTTP.

Once deploy-config.php holds a valid configuration the wizard only shows
a completion page. Stop the server when setup is done.`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides HTTP_LISTEN_ADDR)")
	cmd.Flags().BoolVar(&noBrowserFlag, "no-browser", false, "don't open a browser")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if addrFlag != "" {
		a.cfg.HTTPListenAddr = addrFlag
	}

	srv := setup.NewServer(a.wizard(), a.logger)
	listener, err := net.Listen("tcp", a.cfg.HTTPListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * a.cfg.FetchTimeout,
		IdleTimeout:  60 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d/", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(cmd.OutOrStdout(), "Setup wizard running at %s\n", url)
	if !noBrowserFlag {
		openBrowser(url)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", listener.Addr().String()).
			Str("install_dir", a.prober.InstallDir()).
			Msg("starting setup wizard")
		errc <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Start()
}
