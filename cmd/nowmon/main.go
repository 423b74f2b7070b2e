package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/robotalks/nowlink/pkg/env"
	"github.com/robotalks/nowlink/pkg/framework"
	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/wire"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	drv, err := env.Default().NewDriver()
	if err != nil {
		log.Fatalln(err)
	}
	adapter := link.NewAdapter(drv)
	adapter.Channel = uint8(env.Default().Channel)
	adapter.Sink = link.HandleMessageFunc(func(msg *wire.Message, from link.HardwareAddr) {
		log.Printf("%s: %s", from, msg)
	})
	if err := adapter.Init(); err != nil {
		log.Fatalln(err)
	}
	defer adapter.Close()
	log.Printf("monitoring as %s on channel %d", adapter.LocalAddr(), adapter.Channel)

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	runner.Wait()
}
