package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/link/bridge/websocket"
)

var (
	listenAddr = ":8080"
	path       = "/air"
)

func init() {
	if val := os.Getenv("NOWHUB_LISTEN"); val != "" {
		listenAddr = val
	}
	flag.StringVar(&listenAddr, "listen", listenAddr, "Listen address.")
	flag.StringVar(&path, "path", path, "Websocket path.")
}

func main() {
	flag.Parse()

	hub := websocket.NewHub()
	http.Handle(path, hub)
	glog.Infof("hub listening on %s%s", listenAddr, path)
	log.Fatalln(http.ListenAndServe(listenAddr, nil))
}
