// Command motioncore runs the control software core: it loads the
// cycler manifest and parameter tree, builds one cycler per manifest
// entry, wires the hardware collaborator, and runs every cycler under a
// single global cancellation token until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hulks-go/motioncore/internal/cycler"
	"github.com/hulks-go/motioncore/internal/hardware"
	"github.com/hulks-go/motioncore/internal/hardware/sim"
	"github.com/hulks-go/motioncore/internal/manifest"
	"github.com/hulks-go/motioncore/internal/motion"
	"github.com/hulks-go/motioncore/internal/motion/collector"
	"github.com/hulks-go/motioncore/internal/motion/gait"
	"github.com/hulks-go/motioncore/internal/nodes"
	"github.com/hulks-go/motioncore/internal/paramtree"
	"github.com/hulks-go/motioncore/internal/telemetry"
	"github.com/hulks-go/motioncore/internal/watch"
)

var (
	manifestPath *string
	paramsPath   *string
	gaitPath     *string
	telemetryAddr *string
	useSim       *bool
)

func init() {
	manifestPath = flag.String("manifest", "./config/cyclers.toml", "path to the cycler manifest")
	paramsPath = flag.String("params", "./config/parameters.json", "path to the parameter tree file")
	gaitPath = flag.String("gait", "./config/gait.yaml", "path to the gait preset file")
	telemetryAddr = flag.String("telemetry-addr", ":8080", "address the telemetry server listens on")
	useSim = flag.Bool("sim", true, "use the in-memory simulated hardware collaborator instead of a real driver")
	flag.Parse()
}

func runApp() (err error) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	params, err := paramtree.New(*paramsPath)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}

	presets, err := gait.Load(*gaitPath)
	if err != nil {
		return fmt.Errorf("load gait presets: %w", err)
	}

	var hw hardware.Interface
	if *useSim {
		hw = sim.New()
	} else {
		return fmt.Errorf("no real hardware driver wired in; rerun with -sim")
	}

	appCtx, appCancel := context.WithCancel(context.TODO())
	defer appCancel()

	sigCtx, stop := signal.NotifyContext(appCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cyclers := make(map[string]*cycler.Cycler, len(m.Cyclers))
	// subscriptionMaps holds the same map instance each Cycler was built
	// with; entries are filled in after every cycler exists below, since
	// a cycler may subscribe to another one declared later in the
	// manifest. The map is shared by reference, so mutating it here is
	// visible to the already-constructed Cycler's Config.
	subscriptionMaps := make(map[string]map[string]*watch.Channel[*cycler.Database], len(m.Cyclers))

	// consumers counts, per cycler, the other cyclers reading its published
	// database; the telemetry server's fan-in adds one more reader each.
	consumers := make(map[string]int, len(m.Cyclers))
	for _, spec := range m.Cyclers {
		for _, upstream := range spec.Subscriptions {
			consumers[upstream]++
		}
	}

	for _, spec := range m.Cyclers {
		plan, err := buildPlan(spec, presets)
		if err != nil {
			return fmt.Errorf("build plan for %q: %w", spec.Name, err)
		}

		subs := make(map[string]*watch.Channel[*cycler.Database], len(spec.Subscriptions))
		subscriptionMaps[spec.Name] = subs

		c := cycler.New(cycler.Config{
			Name:           spec.Name,
			Kind:           kindOf(spec.Kind),
			Period:         spec.Period(),
			Plan:           plan,
			Subscriptions:  subs,
			Params:         params,
			HW:             hw,
			Log:            log.With("cycler", spec.Name),
			HistoricWindow: time.Second,
			HistoricMargin: 200 * time.Millisecond,
		}, consumers[spec.Name]+1)

		cyclers[spec.Name] = c
	}

	for _, spec := range m.Cyclers {
		subs := subscriptionMaps[spec.Name]
		for _, upstream := range spec.Subscriptions {
			subs[upstream] = cyclers[upstream].Published()
		}
	}

	group, groupCtx := errgroup.WithContext(sigCtx)
	for name, c := range cyclers {
		c := c
		name := name
		group.Go(func() error {
			if err := c.Run(groupCtx); err != nil {
				return fmt.Errorf("cycler %q: %w", name, err)
			}
			return nil
		})
	}

	telemetrySources := make([]telemetry.Source, 0, len(cyclers))
	for name, c := range cyclers {
		telemetrySources = append(telemetrySources, telemetry.Source{CyclerName: name, Published: c.Published()})
	}
	telemetrySrv := telemetry.NewServer(groupCtx, *telemetryAddr, telemetrySources, log.With("component", "telemetry"))
	group.Go(func() error { return telemetrySrv.ListenAndServe(groupCtx) })

	return group.Wait()
}

func kindOf(k manifest.Kind) cycler.Kind {
	if k == manifest.KindPerception {
		return cycler.KindPerception
	}
	return cycler.KindRealTime
}

// buildPlan resolves a manifest cycler's declared node names into actual
// cycler.Node instances. The walk cycler is the only one with a concrete
// implementation so far; any other cycler name is built with an empty
// plan, a deliberate placeholder until its nodes are written.
func buildPlan(spec manifest.CyclerSpec, presets *gait.Presets) (*cycler.Plan, error) {
	if spec.Name != "walk" {
		return cycler.BuildPlan(nil, nil)
	}

	walkParams := nodes.WalkingEngineParams{
		Presets: presets,
		Engine: motion.EngineParams{
			ReadyStiffness: 0.8,
			GyroFilterAlpha: 0.2,
			SupportPolygon: motion.SupportPolygon{MinX: -0.08, MaxX: 0.08, MinY: -0.05, MaxY: 0.05},
			Catch:          motion.CatchParams{MaxAdjustmentMagnitude: 0.05, MaxAdjustmentDelta: 0.02, OverEstimationGain: 1.5},
		},
		Clamp: motion.ClampParams{
			MaxForward: 0.08, MinForward: -0.04, MaxLeft: 0.04, MinLeft: -0.04, MaxTurn: 0.3, MinTurn: -0.3,
			TurnThresholdForForwardReduction: 0.15, ForwardReductionFactor: 0.5,
			MaxForwardAcceleration: 0.02, MaxTurnAcceleration: 0.1, OutsideTurnIncreaseLimit: 0.05,
		},
	}
	col := &collector.Collector{Calibration: collector.CalibrationOffsets{}}
	motionTypeOf := func(cmd motion.MotionCommand) collector.MotionType {
		switch cmd.Kind {
		case motion.CommandWalk, motion.CommandInWalkKick:
			return collector.MotionWalk
		case motion.CommandStandUp:
			return collector.MotionStandUpFront
		case motion.CommandSitDown:
			return collector.MotionSitDown
		case motion.CommandPenalized:
			return collector.MotionPenalized
		default:
			return collector.MotionStand
		}
	}

	return cycler.BuildPlan(nil, []cycler.NodeSpec{
		{Name: "sense", Node: nodes.NewSensorReadNode(), Writes: []string{"sensor_data"}},
		{Name: "walk", Node: nodes.NewWalkingEngineNode(walkParams), Reads: []string{"sensor_data"}, Writes: []string{"motor_commands"}},
		{Name: "collect", Node: nodes.NewMotorCollectorNode(motionTypeOf, col), Reads: []string{"motor_commands"}, Writes: []string{"collected_commands"}},
		{Name: "write", Node: nodes.NewActuatorWriteNode(), Reads: []string{"collected_commands"}},
	})
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
