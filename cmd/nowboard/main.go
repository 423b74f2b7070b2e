package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/robotalks/nowlink/pkg/board"
	"github.com/robotalks/nowlink/pkg/cli/sh"
	"github.com/robotalks/nowlink/pkg/env"
	"github.com/robotalks/nowlink/pkg/framework"
	"github.com/robotalks/nowlink/pkg/link"
)

var (
	headless bool
	ledCount = board.DefaultLEDCount
)

func init() {
	env.SetupFlags()
	sh.SetupFlags()
	flag.BoolVar(&headless, "headless", headless, "Run without the command menu.")
	flag.IntVar(&ledCount, "leds", ledCount, "Number of LEDs on the strip.")
}

func main() {
	flag.Parse()

	conf := env.Default()
	svc := conf.MustNewService()
	svc.SetSendNotifier(link.SendCompletedFunc(func(r link.SendResult) {
		if r.Status != link.SendSuccess {
			log.Printf("send to %s failed", r.Dst)
		}
	}))
	b := board.New(svc, board.NewSimPin(false), board.NewSimPin(true), &board.LogStrip{}, ledCount)
	if err := b.Start(conf.MustIdentity(svc.Adapter().LocalAddr())); err != nil {
		log.Fatalln(err)
	}

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.NamedRun("loop", b.Loop))
	if !headless {
		shell := sh.New(b)
		runner.Go(framework.NamedRun("shell", framework.RunFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, shell, func() error {
				shell.Run(flag.Args()...)
				return nil
			})
		})))
	}
	err := runner.Wait()
	if cerr := framework.CloseAll(b); cerr != nil {
		log.Printf("close: %v", cerr)
	}
	if err != nil {
		log.Fatalln(err)
	}
}
