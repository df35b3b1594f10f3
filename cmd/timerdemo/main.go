package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lonng/platsupport/internal/env"
	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/driver"
	"github.com/lonng/platsupport/timer/platform"
	"github.com/lonng/platsupport/timer/timemanager"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/lonng/platsupport/timeserver"
	"github.com/pingcap/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := cli.NewApp()
	app.Name = "timerdemo"
	app.Description = "Timeout multiplexing demo on host or simulated timer hardware"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug log",
		},
		&cli.BoolFlag{
			Name:  "zap",
			Usage: "Log with zap development logger",
		},
		&cli.StringFlag{
			Name:  "platform",
			Usage: "Platform description file (TOML)",
		},
	}
	app.Before = setup
	app.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "Run periodic clients on a time server",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "clients",
					Usage: "Number of clients",
					Value: 4,
				},
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "Timer interval of the first client, doubled for each next one",
					Value: 100 * time.Millisecond,
				},
				&cli.DurationFlag{
					Name:  "duration",
					Usage: "Stop after duration, 0 runs until interrupted",
				},
			},
			Action: runServer,
		},
		{
			Name:  "simulate",
			Usage: "Drive simulated timer hardware with a manual clock",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "step",
					Usage: "Clock advance per step",
					Value: time.Millisecond,
				},
				&cli.IntFlag{
					Name:  "steps",
					Usage: "Number of steps",
					Value: 1000,
				},
				&cli.DurationFlag{
					Name:  "period",
					Usage: "Period of the periodic timeout",
					Value: 20 * time.Millisecond,
				},
			},
			Action: simulate,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal("Startup timer demo error.", err)
	}
}

func setup(c *cli.Context) error {
	env.Debug = c.Bool("debug")
	if c.Bool("zap") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		log.SetLogger(log.NewZapLogger(logger))
	}
	return nil
}

// loadPlatform 读取 --platform, 未指定时返回 def
func loadPlatform(c *cli.Context, def *platform.Config) (*platform.Config, error) {
	path := c.String("platform")
	if path == "" {
		return def, nil
	}
	return platform.Load(path)
}

func runServer(c *cli.Context) error {
	cfg, err := loadPlatform(c, platform.Default())
	if err != nil {
		return err
	}
	if cfg.Simulated() {
		return errors.Annotatef(timerapi.ErrUnsupported, "platform %s needs a manual clock, use simulate", cfg.Name)
	}
	lt, err := platform.Open(cfg, nil)
	if err != nil {
		return err
	}
	server, err := timeserver.NewServer(cfg.Name, lt, timeserver.WithCapacity(cfg.Capacity))
	if err != nil {
		lt.Destroy()
		return err
	}
	server.Start()
	defer server.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	interval := c.Duration("interval")
	counts := make([]atomic.Int64, c.Int("clients"))
	g, ctx := errgroup.WithContext(ctx)
	for i := range counts {
		i := i
		d := interval << i
		g.Go(func() error {
			client, err := server.NewClient()
			if err != nil {
				return err
			}
			defer client.Close()
			if _, err := client.Every(d, func() { counts[i].Add(1) }); err != nil {
				return errors.Annotatef(err, "client %d every %v", client.ID(), d)
			}
			log.Info("Client %v ticks every %v.", client.ID(), d)
			<-ctx.Done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range counts {
		log.Info("Client #%v interval %v fired %v times.", i, interval<<i, counts[i].Load())
	}
	return nil
}

// simulated 默认模拟平台: 16 位递增计数器计时, 比较定时器负责超时
func simulated() *platform.Config {
	return &platform.Config{
		Name:      "simulated",
		Capacity:  env.DefaultCapacity,
		Timestamp: platform.DeviceConfig{Kind: platform.KindUpCounter, Bits: 16, Frequency: 1_000_000},
		Timeout:   &platform.DeviceConfig{Kind: platform.KindCompare, Frequency: 1_000_000},
	}
}

func simulate(c *cli.Context) error {
	cfg, err := loadPlatform(c, simulated())
	if err != nil {
		return err
	}
	clock := driver.NewManualClock()
	lt, err := platform.Open(cfg, clock)
	if err != nil {
		return err
	}
	defer lt.Destroy()
	tm, err := timemanager.New(lt, cfg.Capacity)
	if err != nil {
		return err
	}

	periodic, err := tm.AllocID()
	if err != nil {
		return err
	}
	oneshot, err := tm.AllocID()
	if err != nil {
		return err
	}

	var ticks, once int
	period, step := c.Duration("period"), c.Duration("step")
	if err := tm.RegisterPeriodicCB(uint64(period), 0, periodic, func(any) { ticks++ }, nil); err != nil {
		return err
	}
	if err := tm.RegisterRelCB(uint64(period*5/2), oneshot, func(token any) {
		once++
		log.Info("One-shot timeout %v fired.", token)
	}, "half"); err != nil {
		return err
	}

	irqs := lt.IRQs()
	for i := 0; i < c.Int("steps"); i++ {
		clock.Advance(step)
		if pending(irqs) {
			if err := lt.HandleIRQ(); err != nil {
				return err
			}
		}
		if err := tm.Update(); err != nil {
			return err
		}
	}
	now, err := tm.GetTime()
	if err != nil {
		return err
	}
	log.Info("Simulated %v on %v, periodic fired %v times, one-shot fired %v times.", time.Duration(now), cfg.Name, ticks, once)
	return nil
}

// pending 清空所有中断线, 返回是否有中断
func pending(irqs []<-chan struct{}) bool {
	fired := false
	for _, irq := range irqs {
		select {
		case <-irq:
			fired = true
		default:
		}
	}
	return fired
}
