package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/san-kum/ctrlsim/internal/api"
	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/san-kum/ctrlsim/internal/sim"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/spf13/cobra"
)

var (
	listen      string
	servePlants []string
	autoStart   bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve live simulators over REST with prometheus metrics",
		Long: `serve starts one simulator session per plant, each on its own frame
goroutine, and exposes them under /sims. With --config a single session is
built from that file.`,
		Args: cobra.NoArgs,
		RunE: serve,
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, "+config.DefaultListen+")")
	cmd.Flags().StringSliceVar(&servePlants, "plants", config.Plants(), "plants to serve")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "preset applied to every plant that has it")
	cmd.Flags().BoolVar(&autoStart, "start", false, "start every simulator immediately")
	return cmd
}

func serveConfigs() ([]*config.Config, []string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, nil, err
		}
		return []*config.Config{cfg}, []string{""}, nil
	}

	var (
		cfgs    []*config.Config
		presets []string
	)
	for _, plant := range servePlants {
		if !isPlant(plant) {
			return nil, nil, fmt.Errorf("unknown plant %q", plant)
		}
		if cfg := config.GetPreset(plant, preset); cfg != nil {
			cfgs = append(cfgs, cfg)
			presets = append(presets, preset)
			continue
		}
		cfg, err := config.FromEnv(plant)
		if err != nil {
			return nil, nil, err
		}
		cfgs = append(cfgs, cfg)
		presets = append(presets, "")
	}
	return cfgs, presets, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfgs, presets, err := serveConfigs()
	if err != nil {
		return err
	}

	addr := listen
	if addr == "" {
		addr = cfgs[0].API.Listen
	}

	server := api.NewServer()
	reg := rig.NewRegistry()
	for i, cfg := range cfgs {
		sess, err := api.NewSession(cfg.Plant+"-1", presets[i], cfg, reg)
		if err != nil {
			return err
		}
		if err := server.Add(sess); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	{
		// === REST + prometheus
		rest := server.Echo()
		g.Add(func() error {
			ui.Info("Listening on http://%s", addr)
			if err := rest.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(err error) {
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer timeoutCancel()
			if err := rest.Shutdown(timeoutCtx); err != nil {
				ui.Warning("Error stopping REST server: %v", err)
			} else {
				ui.Info("REST server stopped.")
			}
		})
	}
	{
		// === simulator sessions
		for _, s := range server.Sessions() {
			sess := s
			g.Add(func() error {
				if autoStart {
					go func() {
						if err := sess.Do(ctx, func(sm *sim.Simulator, _ rig.Rig) { sm.Start() }); err != nil {
							ui.Warning("Could not start %s: %v", sess.ID, err)
						}
					}()
				}
				ui.Info("Session %s ready (/sims/%s)", sess.ID, sess.ID)
				err := sess.Run(ctx)
				ui.Debug("Session %s stopped.", sess.ID)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}, func(err error) {
				cancel()
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	return g.Run()
}
