package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/browser"
	"github.com/user/slidegate/internal/config"
	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/logging"
	"github.com/user/slidegate/internal/scheduler"
	"github.com/user/slidegate/internal/solver"
	"github.com/user/slidegate/internal/stealth"
	"github.com/user/slidegate/internal/storage"
)

type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "slidegate",
		Short:         "Solve slide-to-unlock challenges with human-looking pointer input.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logging.Init(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
				return fmt.Errorf("failed to init logging: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}
	root.AddCommand(a.newSolveCmd(), a.newScanCmd(), a.newHistoryCmd())
	return root
}

func (a *app) newSolveCmd() *cobra.Command {
	var (
		url      string
		seed     int64
		attempts int
		headless bool
		launch   bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Attach to Chrome and solve the challenge on the current page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("url") {
				cfg.AppURL = url
			}
			if flags.Changed("seed") {
				cfg.Seed = seed
			}
			if flags.Changed("attempts") {
				cfg.MaxAttempts = attempts
			}
			if flags.Changed("headless") {
				cfg.Headless = headless
			}
			if flags.Changed("launch") {
				cfg.LaunchBrowser = launch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSolve(ctx, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&url, "url", "", "page to open before each attempt (empty keeps the current tab)")
	f.Int64Var(&seed, "seed", 0, "random seed; 0 picks one from the clock")
	f.IntVar(&attempts, "attempts", 1, "maximum challenge attempts")
	f.BoolVar(&headless, "headless", false, "run a launched browser headless")
	f.BoolVar(&launch, "launch", false, "launch a private Chrome instead of attaching")
	return cmd
}

func runSolve(ctx context.Context, cfg *config.Config) error {
	log := logging.Logger

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer store.Close()

	client, err := browser.New(ctx, browser.Options{
		ControlURL:        cfg.ChromeURL,
		Launch:            cfg.LaunchBrowser,
		Headless:          cfg.Headless,
		Retries:           cfg.ConnectRetries,
		Viewport:          cfg.Viewport,
		DeviceScaleFactor: cfg.DeviceScaleFactor,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	page, err := client.Page(ctx)
	if err != nil {
		return err
	}
	surface := browser.NewSurface(page, cfg.Viewport)
	if err := surface.RefreshBounds(ctx); err != nil {
		log.Warnf("could not read viewport size, using %vx%v: %v", cfg.Viewport.Width, cfg.Viewport.Height, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Infof("Session seed: %d", seed)

	mouse := stealth.New(cfg.Stealth, surface, surface, stealth.WithRand(rand.New(rand.NewSource(seed))))
	detector := anomaly.New(cfg.Anomaly, anomaly.ImagingDecoder{})

	s := solver.New(solver.Options{
		URL:            cfg.AppURL,
		ButtonSelector: cfg.ButtonSelector,
		SliderSelector: cfg.SliderSelector,
		HandleSelector: cfg.HandleSelector,
		ScreenshotDir:  cfg.ScreenshotDir,
		Seed:           seed,
	}, surface, mouse, detector,
		solver.WithRecorder(store),
		solver.WithLimiter(scheduler.New(cfg.MaxAttempts)),
	)

	out, err := s.Run(ctx)
	if err != nil {
		log.Errorf("Error: %v", err)
		return err
	}
	log.Infof("Released at x=%.2f (attempt %s)", out.Mapping.TargetPageX, out.AttemptID)
	if !cfg.LaunchBrowser {
		log.Info("Script complete. Browser remains open.")
	}
	return nil
}

func (a *app) newScanCmd() *cobra.Command {
	var (
		boxX, boxWidth float64
		offset         float64
		threshold      int
		direction      string
	)
	cmd := &cobra.Command{
		Use:   "scan <image.png>",
		Short: "Run target acquisition on a saved slider image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Anomaly
			flags := cmd.Flags()
			if flags.Changed("offset") {
				cfg.OffsetPixels = offset
			}
			if flags.Changed("threshold") {
				if threshold < 0 || threshold > 255 {
					return fmt.Errorf("threshold must be within 0..255, got %d", threshold)
				}
				cfg.WhiteThreshold = uint8(threshold)
			}
			if flags.Changed("direction") {
				dir, err := anomaly.ParseDirection(direction)
				if err != nil {
					return err
				}
				cfg.Direction = dir
			}

			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sample, found, err := anomaly.New(cfg, anomaly.ImagingDecoder{}).FindFirstAnomaly(cmd.Context(), buf)
			if err != nil {
				return err
			}
			if !found {
				return anomaly.ErrNoAnomaly
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "anomaly: x=%d y=%d rgb=(%d,%d,%d) image=%dx%d\n",
				sample.X, sample.Y, sample.R, sample.G, sample.B, sample.ImageWidth, sample.ImageHeight)
			if boxWidth > 0 {
				m := anomaly.MapToPage(geom.Box{X: boxX, Width: boxWidth}, sample, cfg.OffsetPixels)
				fmt.Fprintf(out, "page: scale=%.4f anomaly_x=%.2f offset=%.2f target_x=%.2f\n",
					m.Scale, m.AnomalyPageX, m.OffsetPageX, m.TargetPageX)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&boxX, "box-x", 0, "page x of the slider element")
	f.Float64Var(&boxWidth, "box-width", 0, "page width of the slider element; enables the page mapping")
	f.Float64Var(&offset, "offset", 0, "calibration bias in image pixels")
	f.IntVar(&threshold, "threshold", 0, "white threshold, 0..255")
	f.StringVar(&direction, "direction", "", "column scan order: right-to-left or left-to-right")
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show today's attempt count and the most recent attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			store, err := storage.New(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to init storage: %w", err)
			}
			defer store.Close()

			today, err := store.GetTodaysAttemptCount()
			if err != nil {
				return err
			}
			attempts, err := store.RecentAttempts(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "today: %d attempts\n", today)
			for _, at := range attempts {
				fmt.Fprintf(out, "%s seed=%d started=%s outcome=%s",
					at.ID, at.Seed, at.StartedAt.Format(time.RFC3339), at.Outcome)
				if at.Found {
					fmt.Fprintf(out, " anomaly=(%d,%d) target_x=%.2f", at.AnomalyX, at.AnomalyY, at.TargetX)
				}
				if at.Error != "" {
					fmt.Fprintf(out, " error=%q", at.Error)
				}
				fmt.Fprintln(out)

				activity, err := store.GetActivity(at.ID)
				if err != nil {
					return err
				}
				for _, act := range activity {
					fmt.Fprintf(out, "  %s %s\n", act.ActionType, act.Metadata)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent attempts to show")
	return cmd
}
