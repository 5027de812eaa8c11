package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/intelligrit/chronomap/internal/atlas"
	"github.com/intelligrit/chronomap/internal/logs"
	"github.com/intelligrit/chronomap/internal/web"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
	serveFocus bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive atlas",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("host") {
			serveHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}
		if serveWatch && dataDir == "" {
			return errors.New("--watch needs --data-dir")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		session := atlas.NewSession(s, atlas.Options{
			Range:     playbackRange(),
			Speed:     cfg.Playback.Speed,
			FrameRate: cfg.Playback.FrameRate,
			Focus:     serveFocus,
		}, logs.Named("atlas"))

		srv := &web.Server{
			Store:   s,
			Session: session,
			Addr:    fmt.Sprintf("%s:%d", serveHost, servePort),
			Log:     logs.Named("web"),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return session.Run(ctx) })
		g.Go(func() error { return srv.ListenAndServe(ctx) })
		if serveWatch {
			g.Go(func() error { return s.Watch(ctx, dataDir) })
		}

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload empire files from --data-dir when they change")
	serveCmd.Flags().BoolVar(&serveFocus, "focus", false, "Start in focus mode")
	rootCmd.AddCommand(serveCmd)
}
