package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamware/cloudsim/internal/cluster"
	"github.com/dreamware/cloudsim/internal/controller"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	port := flag.Int("port", 8080, "TCP listen port")
	maxConns := flag.Int("max-conns", 0, "concurrent connection cap (0 = default)")
	announce := flag.Bool("announce", true, "multicast-announce this controller on the LAN")
	flag.Parse()

	registry := controller.NewRegistry()
	monitor := controller.NewMonitor(registry, controller.MonitorConfig{})
	server := controller.NewServer(registry, controller.ServerConfig{
		Addr:     fmt.Sprintf(":%d", *port),
		MaxConns: *maxConns,
	})

	go monitor.Start(nil)
	go func() {
		log.Printf("controller listening on :%d", *port)
		if err := server.ListenAndServe(); err != nil {
			logFatal("listen: %v", err)
		}
	}()

	stopAnnounce := make(chan struct{})
	if *announce {
		go func() {
			if err := cluster.Announce(*port, stopAnnounce); err != nil {
				log.Printf("discovery announce: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	close(stopAnnounce)
	monitor.Stop()
	server.Shutdown()
	log.Println("controller stopped")
}
