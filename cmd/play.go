package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/atlas"
	"github.com/intelligrit/chronomap/internal/logs"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/timeline"
)

var (
	playFrom  int
	playTo    int
	playSpeed float64
	playFocus bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the timeline headlessly and log what the map would do",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng := playbackRange()
		if cmd.Flags().Changed("from") {
			rng.Min = playFrom
		}
		if cmd.Flags().Changed("to") {
			rng.Max = playTo
		}
		if !rng.Valid() {
			return errors.New("--from must be before --to")
		}
		if !cmd.Flags().Changed("speed") {
			playSpeed = cfg.Playback.Speed
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		log := logs.Named("play")
		camera := render.SinkFunc(func(c render.Command) {
			if c.Op == render.OpFitBounds {
				log.Info("camera", zap.Any("bounds", c.Bounds), zap.Int("padding", c.Camera.Padding))
			}
		})
		session := atlas.NewSession(s, atlas.Options{
			Range:     rng,
			Speed:     playSpeed,
			FrameRate: cfg.Playback.FrameRate,
			Focus:     playFocus,
			Sinks:     []render.Sink{camera},
		}, logs.Named("atlas"))

		session.Controller().OnVisibleChanged(func(year int, ids []string) {
			log.Info(timeline.FormatYear(float64(year)), zap.String("visible", strings.Join(ids, ", ")))
		})
		session.Player().OnState(func(playing bool) {
			if !playing {
				log.Info("playback finished", zap.String("at", timeline.FormatYear(session.Player().Year())))
				cancel()
			}
		})
		if err := session.Send(atlas.Control{Type: atlas.ControlPlay}); err != nil {
			return err
		}

		err = session.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	playCmd.Flags().IntVar(&playFrom, "from", timeline.MinYear, "Year to start from")
	playCmd.Flags().IntVar(&playTo, "to", timeline.MaxYear, "Year to stop at")
	playCmd.Flags().Float64Var(&playSpeed, "speed", 50, "Base speed in years per second")
	playCmd.Flags().BoolVar(&playFocus, "focus", true, "Frame the camera on visible empires")
	rootCmd.AddCommand(playCmd)
}
