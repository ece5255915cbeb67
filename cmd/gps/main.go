// Command gps streams fix-cycle messages from a GPS receiver on a serial
// port and prints each parsed snapshot as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/gps.report/internal/config"
	"github.com/banshee-data/gps.report/internal/nmea"
	"github.com/banshee-data/gps.report/internal/serialmux"
	"github.com/banshee-data/gps.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Replay fixture data instead of reading a real receiver")
	disableGPS = flag.Bool("disable-gps", false, "Run without any GPS source")
	configPath = flag.String("config", "", "Path to YAML config file")
	device     = flag.String("port", "", "Serial device to use (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	pretty     = flag.Bool("pretty", true, "Pretty-print snapshots as indented JSON")
)

// loadConfig resolves the effective configuration: file values when -config
// is given, receiver defaults otherwise, with flags taking precedence.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud > 0 {
		cfg.Port.BaudRate = *baud
	}
	return cfg, nil
}

// handleMessage parses one raw fix-cycle message and writes the snapshot as
// JSON. A cycle containing only unknown sentences produces no output.
func handleMessage(w io.Writer, payload string, pretty bool) error {
	snap := nmea.Parse([]byte(payload))
	if len(snap) == 0 {
		return nil
	}

	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(snap, "", "  ")
	} else {
		b, err = json.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func main() {
	flag.Parse()

	log.Printf("gps.report %s (%s)", version.Version, version.GitSHA)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var mux serialmux.MuxInterface
	switch {
	case *disableGPS:
		mux = serialmux.NewDisabledMux()
	case *devMode:
		data, err := os.ReadFile(cfg.Fixture)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		mux = serialmux.NewMockMux(data)
	default:
		mux, err = serialmux.NewRealMux(cfg.Device, cfg.Port, cfg.ReadTimeout())
		if err != nil {
			log.Fatalf("failed to open GPS port %s: %v", cfg.Device, err)
		}
	}
	defer mux.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
		stop()
	}()

	// subscribe to framed fix cycles and print each parsed snapshot
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if err := handleMessage(os.Stdout, payload, *pretty); err != nil {
					log.Printf("error handling message: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	wg.Wait()
}
