package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	nebulaconfig "github.com/Niraka/nebula/internal/config"
	"github.com/Niraka/nebula/internal/logging"
	"github.com/Niraka/nebula/schedule"
	"github.com/Niraka/nebula/timectrl"
)

var (
	flagRate               string
	flagConfigPath         string
	flagFrames             uint64
	flagInterpolationCap   float64
	flagLagThreshold       float64
	flagLagWarningInterval uint32
	flagRefuseStopRequests bool
	flagHeadless           bool
	flagDemoItemCount      int
	flagTimeScale          float64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler with a set of demo items",
		RunE:  runRun,
	}

	cmd.Flags().StringVar(&flagRate, "rate", "60/s", `Master rate ("<n>/s" or "unlimited")`)
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to a YAML scheduler config; overrides the other tuning flags")
	cmd.Flags().Uint64Var(&flagFrames, "frames", 0, "Stop after this many frames (0 runs until interrupted)")
	cmd.Flags().Float64Var(&flagInterpolationCap, "interpolation-cap", 1.1, "Interpolation cap (<1.0 disables capping)")
	cmd.Flags().Float64Var(&flagLagThreshold, "lag-threshold", 1.025, "Interpolation above which a frame counts as delayed")
	cmd.Flags().Uint32Var(&flagLagWarningInterval, "lag-warning-interval", 10, "Seconds between falling-behind events (0 disables)")
	cmd.Flags().BoolVar(&flagRefuseStopRequests, "refuse-stop-requests", true, "Refuse item-initiated stop requests")
	cmd.Flags().BoolVar(&flagHeadless, "headless", false, "Disable the live progress bar")
	cmd.Flags().IntVar(&flagDemoItemCount, "demo-items", 3, "Number of demo items to register")
	cmd.Flags().Float64Var(&flagTimeScale, "time-scale", 1.0, "Run the clock at this multiple of wall-clock time (>1 accelerates, <1 slows down)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	var bar *mpb.Bar
	var progress *mpb.Progress
	if !flagHeadless && flagFrames > 0 {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.New(int64(flagFrames),
			mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
			mpb.PrependDecorators(
				decor.Name("scheduler", decor.WC{W: len("scheduler") + 1, C: decor.DindentRight}),
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
			),
			mpb.AppendDecorators(decor.AverageSpeed(0, "% .1f frames/s")),
		)
	}

	engOpts := []schedule.Option{
		schedule.WithLogger(logger),
	}
	if flagTimeScale != 1.0 {
		clock := timectrl.New(timectrl.Accelerated, flagTimeScale)
		engOpts = append(engOpts, schedule.WithClock(clock), schedule.WithSleeper(clock))
	}

	// Engine.Stop must run on the loop's own goroutine, so the signal handler
	// below only sets this flag and the frame observer calls Stop.
	var interrupted atomic.Bool
	lastFrames := uint64(0)
	var eng *schedule.Engine
	engOpts = append(engOpts, schedule.WithFrameObserver(func(data schedule.ExecutionData) {
		if bar != nil {
			bar.IncrBy(int(data.FramesExecuted - lastFrames))
			lastFrames = data.FramesExecuted
		}
		if interrupted.Load() || (flagFrames > 0 && data.FramesExecuted >= flagFrames) {
			eng.Stop()
		}
	}))
	eng = schedule.New(cfg, engOpts...)

	for i := 0; i < flagDemoItemCount; i++ {
		eng.AddItem(newDemoItem(i, logger), schedule.FromPreset(pickDemoPreset(i)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		interrupted.Store(true)
	}()

	start := time.Now()
	eng.Start()
	if progress != nil {
		progress.Wait()
	}

	data := eng.ExecutionData()
	fmt.Printf("frames executed: %s (in %s), delayed: %s, refused stops: %s\n",
		humanize.Comma(int64(data.FramesExecuted)),
		time.Since(start).Round(time.Millisecond),
		humanize.Comma(int64(data.FramesDelayedTotal)),
		humanize.Comma(int64(data.RefusedStopRequests)),
	)
	return nil
}

func resolveConfig() (schedule.Config, error) {
	if flagConfigPath != "" {
		return nebulaconfig.Load(afero.NewOsFs(), flagConfigPath)
	}

	rate, err := nebulaconfig.ParseRate(flagRate)
	if err != nil {
		return schedule.Config{}, err
	}
	return schedule.Config{
		MasterRate:                rate,
		InterpolationCap:          flagInterpolationCap,
		LagThreshold:              flagLagThreshold,
		LagWarningIntervalSeconds: flagLagWarningInterval,
		RefuseStopRequests:        flagRefuseStopRequests,
	}, nil
}

func pickDemoPreset(i int) schedule.Preset {
	presets := []schedule.Preset{
		schedule.Preset30PerSecond,
		schedule.Preset60PerSecond,
		schedule.Preset90PerSecond,
		schedule.Preset120PerSecond,
		schedule.PresetUnlimited,
	}
	return presets[i%len(presets)]
}

// demoItem logs its own update cadence; it exists purely to give the CLI
// something to schedule.
type demoItem struct {
	schedule.BaseItem
	id     int
	log    logging.Logger
	frames uint64
}

func newDemoItem(id int, log logging.Logger) *demoItem {
	return &demoItem{id: id, log: log}
}

func (d *demoItem) OnUpdate(info schedule.TimeInfo) {
	d.frames++
	if d.frames%300 == 0 {
		d.log.Debug(context.Background(), "demo item tick",
			logging.Int("item", d.id),
			logging.Any("interpolation", info.Interpolation),
		)
	}
}
