package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Service type strings advertised over DNS-SD.
const (
	// ServiceRAOP is the audio streaming (AirTunes) service.
	ServiceRAOP = "_raop._tcp"

	// ServiceAirPlay is the AirPlay 2 service.
	ServiceAirPlay = "_airplay._tcp"

	// DefaultDomain is the default mDNS domain.
	DefaultDomain = "local."
)

// ServiceType identifies one of the advertised services.
type ServiceType int

const (
	// ServiceTypeRAOP identifies the _raop._tcp registration.
	ServiceTypeRAOP ServiceType = iota

	// ServiceTypeAirPlay identifies the _airplay._tcp registration.
	ServiceTypeAirPlay
)

// MDNSServer is the interface for an active mDNS service registration.
// This allows for dependency injection in tests.
type MDNSServer interface {
	// Shutdown stops the server.
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	// Register creates a new mDNS server for the given service.
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

// zeroconfServerFactory is the production implementation using grandcat/zeroconf.
type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// activeService tracks an active DNS-SD service registration.
type activeService struct {
	server       MDNSServer
	instanceName string
}

// AdvertiserConfig holds configuration for the Advertiser.
type AdvertiserConfig struct {
	// Name is the friendly device name shown in sender pickers.
	Name string

	// DeviceID is the 6-byte device MAC address.
	DeviceID [6]byte

	// Port is the RTSP port to advertise.
	Port int

	// Interfaces specifies which network interfaces to advertise on.
	// If nil, all interfaces are used.
	Interfaces []net.Interface

	// ServerFactory is the factory for creating mDNS servers.
	// If nil, the default zeroconf factory is used.
	ServerFactory MDNSServerFactory

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes the receiver's DNS-SD services to the network.
type Advertiser struct {
	config   AdvertiserConfig
	factory  MDNSServerFactory
	log      logging.LeveledLogger
	mu       sync.RWMutex
	services map[ServiceType]*activeService
	closed   bool
}

// NewAdvertiser creates a new Advertiser with the given configuration.
func NewAdvertiser(config AdvertiserConfig) (*Advertiser, error) {
	if config.Name == "" || len(config.Name) > MaxNameLength {
		return nil, ErrInvalidName
	}
	if config.DeviceID == ([6]byte{}) {
		return nil, ErrInvalidDeviceID
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, ErrInvalidPort
	}

	factory := config.ServerFactory
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}

	a := &Advertiser{
		config:   config,
		factory:  factory,
		services: make(map[ServiceType]*activeService),
	}

	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}

	return a, nil
}

// StartRAOP begins advertising the audio streaming service.
// Instance name format: <hex device ID>@<name>.
func (a *Advertiser) StartRAOP(txt RAOPTXT) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if _, exists := a.services[ServiceTypeRAOP]; exists {
		return ErrAlreadyStarted
	}

	instanceName := RAOPInstanceName(a.config.DeviceID, a.config.Name)
	txtRecords := txt.Encode()

	if a.log != nil {
		a.log.Debugf("Registering mDNS service: instance=%s service=%s port=%d",
			instanceName, ServiceRAOP, a.config.Port)
		a.log.Tracef("TXT records: %v", txtRecords)
	}

	server, err := a.factory.Register(
		instanceName,
		ServiceRAOP,
		DefaultDomain,
		a.config.Port,
		txtRecords,
		a.config.Interfaces,
	)
	if err != nil {
		return fmt.Errorf("advertiser: mDNS registration failed for %s: %w", ServiceRAOP, err)
	}

	if a.log != nil {
		a.log.Infof("mDNS registration successful for %s", ServiceRAOP)
	}

	a.services[ServiceTypeRAOP] = &activeService{
		server:       server,
		instanceName: instanceName,
	}

	return nil
}

// StartAirPlay begins advertising the AirPlay 2 service.
// The instance name is the friendly device name.
func (a *Advertiser) StartAirPlay(txt AirPlayTXT) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if _, exists := a.services[ServiceTypeAirPlay]; exists {
		return ErrAlreadyStarted
	}

	if txt.DeviceID == ([6]byte{}) {
		txt.DeviceID = a.config.DeviceID
	}

	instanceName := a.config.Name

	server, err := a.factory.Register(
		instanceName,
		ServiceAirPlay,
		DefaultDomain,
		a.config.Port,
		txt.Encode(),
		a.config.Interfaces,
	)
	if err != nil {
		return fmt.Errorf("advertiser: mDNS registration failed for %s: %w", ServiceAirPlay, err)
	}

	if a.log != nil {
		a.log.Infof("mDNS registration successful for %s", ServiceAirPlay)
	}

	a.services[ServiceTypeAirPlay] = &activeService{
		server:       server,
		instanceName: instanceName,
	}

	return nil
}

// Stop stops advertising a specific service type.
func (a *Advertiser) Stop(serviceType ServiceType) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	svc, exists := a.services[serviceType]
	if !exists {
		return ErrNotStarted
	}

	svc.server.Shutdown()
	delete(a.services, serviceType)

	return nil
}

// StopAll stops all active service advertisements.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, svc := range a.services {
		svc.server.Shutdown()
	}
	a.services = make(map[ServiceType]*activeService)
}

// Close stops all services and closes the advertiser.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	for _, svc := range a.services {
		svc.server.Shutdown()
	}
	a.services = nil
	a.closed = true

	return nil
}

// IsAdvertising returns true if the given service type is currently being advertised.
func (a *Advertiser) IsAdvertising(serviceType ServiceType) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.services[serviceType]
	return exists
}

// InstanceName returns the instance name for an active service.
// Returns empty string if the service is not active.
func (a *Advertiser) InstanceName(serviceType ServiceType) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if svc, exists := a.services[serviceType]; exists {
		return svc.instanceName
	}
	return ""
}
