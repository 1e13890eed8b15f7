// airplay-receiver advertises an AirTunes endpoint over mDNS and serves
// its RTSP control channel.
//
// Usage:
//
//	airplay-receiver [options]
//
// Options:
//
//	-config  Path to a YAML configuration file (optional)
//	-name    Friendly device name (overrides the config file)
//	-port    RTSP port (overrides the config file)
//
// Example:
//
//	airplay-receiver -name "Living Room" -port 7000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/openairplay/receiver/pkg/config"
	"github.com/openairplay/receiver/pkg/discovery"
	"github.com/openairplay/receiver/pkg/metrics"
	"github.com/openairplay/receiver/pkg/rtsp"
)

// supportedMethods is advertised in response to OPTIONS.
const supportedMethods = "ANNOUNCE, SETUP, RECORD, PAUSE, FLUSH, TEARDOWN, OPTIONS, GET_PARAMETER, SET_PARAMETER"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	name := flag.String("name", "", "friendly device name")
	port := flag.Int("port", 0, "RTSP port")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *name != "" {
		cfg.Device.Name = *name
	}
	if *port != 0 {
		cfg.RTSP.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = parseLogLevel(cfg.Logging.Level)
	log := loggerFactory.NewLogger("main")

	deviceID, err := resolveDeviceID(cfg)
	if err != nil {
		log.Errorf("Failed to resolve device ID: %v", err)
		os.Exit(1)
	}

	m := metrics.New()

	server, err := rtsp.NewServer(rtsp.ServerConfig{
		ListenAddr:     cfg.RTSP.ListenAddr(),
		Handler:        makeHandler(loggerFactory.NewLogger("rtsp")),
		PollInterval:   cfg.RTSP.GetPollInterval(),
		MaxRequestSize: cfg.RTSP.MaxRequestSize,
		Metrics:        m,
		LoggerFactory:  loggerFactory,
	})
	if err != nil {
		log.Errorf("Failed to create RTSP server: %v", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		log.Errorf("Failed to start RTSP server: %v", err)
		os.Exit(1)
	}
	log.Infof("RTSP server listening on %s", server.LocalAddr())

	advertiser, err := discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Name:          cfg.Device.Name,
		DeviceID:      deviceID,
		Port:          cfg.RTSP.Port,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		log.Errorf("Failed to create advertiser: %v", err)
		server.Stop()
		os.Exit(1)
	}

	if err := advertiser.StartRAOP(discovery.RAOPTXT{Model: cfg.Device.Model}); err != nil {
		log.Errorf("Failed to advertise %s: %v", discovery.ServiceRAOP, err)
		server.Stop()
		os.Exit(1)
	}
	if err := advertiser.StartAirPlay(discovery.AirPlayTXT{Model: cfg.Device.Model}); err != nil {
		log.Errorf("Failed to advertise %s: %v", discovery.ServiceAirPlay, err)
		advertiser.Close()
		server.Stop()
		os.Exit(1)
	}
	log.Infof("Advertising as %q (%s)", cfg.Device.Name, discovery.FormatDeviceID(deviceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}

		group.Go(func() error {
			log.Infof("Metrics endpoint listening on %s", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		advertiser.Close()

		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}

		return server.Stop()
	})

	if err := group.Wait(); err != nil {
		log.Errorf("Shutdown error: %v", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}

// makeHandler builds the RTSP request dispatcher. Methods that carry no
// receiver state change are acknowledged with a plain 200.
func makeHandler(log logging.LeveledLogger) rtsp.RequestHandler {
	return func(conn *rtsp.Conn, req *rtsp.Request) {
		log.Debugf("%s %s CSeq=%d from %s", req.Method, req.Path, req.CSeq, conn.RemoteAddr())

		switch req.Method {
		case "OPTIONS":
			resp := &rtsp.Response{
				Code:    200,
				Status:  "OK",
				CSeq:    req.CSeq,
				Headers: []rtsp.HeaderField{{Name: "Public", Value: supportedMethods}},
			}
			if err := conn.WriteResponse(resp); err != nil {
				log.Warnf("Failed to respond to OPTIONS: %v", err)
			}

		case "TEARDOWN":
			if err := conn.WriteOK(req.CSeq); err != nil {
				log.Warnf("Failed to respond to TEARDOWN: %v", err)
			}
			conn.Close()

		default:
			if err := conn.WriteOK(req.CSeq); err != nil {
				log.Warnf("Failed to respond to %s: %v", req.Method, err)
			}
		}
	}
}

// resolveDeviceID returns the configured device ID, falling back to the
// hardware address of the first usable network interface.
func resolveDeviceID(cfg *config.Config) ([6]byte, error) {
	if cfg.Device.ID != "" {
		return cfg.Device.ParseID()
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return [6]byte{}, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		var id [6]byte
		copy(id[:], iface.HardwareAddr)
		return id, nil
	}

	return [6]byte{}, errors.New("no interface with a usable hardware address")
}

func parseLogLevel(level string) logging.LogLevel {
	switch strings.ToLower(level) {
	case "trace":
		return logging.LogLevelTrace
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
