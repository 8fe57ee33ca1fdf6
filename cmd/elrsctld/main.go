package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/rcwire/elrsctl/pkg/export/mqtt"
	"github.com/rcwire/elrsctl/pkg/export/ws"
	"github.com/rcwire/elrsctl/pkg/framework"
	"github.com/rcwire/elrsctl/pkg/port"
	"github.com/rcwire/elrsctl/pkg/state"
	"github.com/rcwire/elrsctl/pkg/transmitter"
)

var (
	brokerURL = flag.String("broker", "", "MQTT broker URL for the telemetry feed, empty to disable.")
	wsAddr    = flag.String("ws", "", "Websocket listen address (e.g. :8080), empty to disable.")
)

func init() {
	port.SetupFlags()
}

func main() {
	flag.Parse()

	cfg := port.NewConfig()
	if cfg.Name == "" {
		log.Fatalln("-port is required")
	}
	p, err := cfg.Open()
	if err != nil {
		log.Fatalln(err)
	}

	st := state.New()
	st.SetDeviceConfig(state.DeviceConfig{
		Protocol:  "ExpressLRS",
		Frequency: "2.4 GHz",
		BaudRate:  cfg.BaudRate,
	})
	tx := transmitter.New(p, st)

	runner := framework.NewRunner().HandleSignals()
	runner.Go(tx)

	if *brokerURL != "" {
		pub, err := mqtt.NewPublisher(*brokerURL, st)
		if err != nil {
			log.Fatalln(err)
		}
		st.Subscribe(pub.Notify)
		runner.Go(pub)
	}
	if *wsAddr != "" {
		runner.Go(&ws.Server{Addr: *wsAddr, Feed: &ws.Feed{State: st}})
	}

	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
