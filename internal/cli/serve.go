package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelcut/internal/api"
	"reelcut/internal/logx"
)

// Version is stamped at build time.
var Version = "dev"

var (
	serveAddr    string
	serveNoAudio bool
	serveWatch   bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&serveNoAudio, "no-audio", false, "Do not start ffplay for audio clips")
	cmd.Flags().BoolVar(&serveWatch, "watch", false, "Import files added to the media directory")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Audio: !serveNoAudio})
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.projects()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = s.cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.preload(ctx)
	}()

	if s.cfg.AutosaveEnabled() {
		saver := s.autosaver()
		wg.Add(1)
		go func() {
			defer wg.Done()
			saver.Run(ctx)
		}()
	}

	if serveWatch || s.cfg.Media.WatchEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watchMedia(ctx, s, s.pp.MediaDir, nil); err != nil {
				s.logger.Warn().Err(err).Msg("media watch stopped")
			}
		}()
	}

	server := api.NewServer(api.ServerConfig{
		Addr:      addr,
		Engine:    s.engine,
		Projects:  projects,
		Logger:    logx.WithComponent(s.logger, "api"),
		StartTime: time.Now(),
		Version:   Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	cmd.Printf("Serving %s on http://%s\n", s.engine.Name(), addr)

	select {
	case err = <-errCh:
		stop()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	s.engine.Stop()
	wg.Wait()
	return err
}
