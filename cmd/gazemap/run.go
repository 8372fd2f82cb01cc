package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iohnishijima/GazeMappingApplication/internal/config"
	"github.com/iohnishijima/GazeMappingApplication/internal/log"
	"github.com/iohnishijima/GazeMappingApplication/pkg/aoi"
	"github.com/iohnishijima/GazeMappingApplication/pkg/camera"
	"github.com/iohnishijima/GazeMappingApplication/pkg/capture"
	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
	"github.com/iohnishijima/GazeMappingApplication/pkg/registration"
	"github.com/iohnishijima/GazeMappingApplication/pkg/session"
	"github.com/iohnishijima/GazeMappingApplication/pkg/web"
)

var runOpts struct {
	listen string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the tracker and serve the monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngine(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&runOpts.listen, "listen", "", "Monitor address (overrides the settings file)")
	rootCmd.AddCommand(runCmd)
}

func runEngine(parent context.Context) error {
	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if runOpts.listen != "" {
		settings.Listen = runOpts.listen
	}
	log.Init(settings.LogLevel)

	calib, err := camera.NewCalibration(settings.Matrix(), settings.Distortion())
	if err != nil {
		return err
	}
	remapper := camera.NewRemapper(calib)
	defer remapper.Close()

	reg, err := registration.NewEngine(registration.DefaultConfig())
	if err != nil {
		return err
	}
	defer reg.Close()
	if err := reg.SetReferenceFile(settings.ReferenceImage); err != nil {
		return err
	}

	cfg := engine.DefaultConfig()
	cfg.Options = displayOptions(settings.Display)

	mailbox := capture.NewMailbox()
	defer mailbox.Close()

	proc, err := engine.New(cfg, mailbox, remapper, reg)
	if err != nil {
		return err
	}
	defer proc.Close()

	if settings.AOIFile != "" {
		aois, err := aoi.LoadFile(settings.AOIFile)
		if err != nil {
			return err
		}
		proc.SetAOIs(aois)
		log.Info("regions loaded", "file", settings.AOIFile, "count", len(aois))
	}

	store, err := session.Open(settings.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	proc.SetRecorder(session.NewRecorder(store, settings.ExportDir))

	receiver := capture.NewReceiver(settings.Endpoint, mailbox)
	srv := web.NewServer(settings.Listen, proc, store)
	proc.SetSink(srv)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	errc := make(chan error, 3)
	go func() { errc <- receiver.Run(ctx) }()
	go func() { errc <- proc.Run(ctx) }()
	go func() { errc <- srv.Run(ctx) }()

	// The first loop to return tears down the rest; cancellations from the
	// teardown are expected and dropped.
	var firstErr error
	for i := 0; i < 3; i++ {
		err := <-errc
		if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	return firstErr
}

// displayOptions overlays the settings file onto the engine defaults.
// Zero-valued optional fields keep the defaults; pointer fields distinguish
// "absent" from an explicit false or zero.
func displayOptions(d config.DisplaySettings) engine.Options {
	o := engine.DefaultOptions()
	if d.GazePointSize > 0 {
		o.GazePointSize = d.GazePointSize
	}
	if len(d.GazePointColor) == 3 {
		o.GazeColor = [3]int{d.GazePointColor[0], d.GazePointColor[1], d.GazePointColor[2]}
	}
	if d.GazePointOpacity != nil {
		o.GazeOpacity = *d.GazePointOpacity
	}
	o.HeatmapEnabled = d.HeatmapEnabled
	if d.HeatmapOpacity != nil {
		o.HeatmapOpacity = *d.HeatmapOpacity
	}
	if d.HistorySize > 0 {
		o.HistorySize = d.HistorySize
	}
	o.OverlayScene = d.SceneOverlay
	if d.SceneOpacity != nil {
		o.SceneOpacity = *d.SceneOpacity
	}
	if d.ShowFPS != nil {
		o.ShowFPS = *d.ShowFPS
	}
	return o
}
