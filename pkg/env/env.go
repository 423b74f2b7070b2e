// Package env sets up a board from command line flags and environment.
package env

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/broadcast"
	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/link/bridge"
	"github.com/robotalks/nowlink/pkg/link/bridge/stream"
	"github.com/robotalks/nowlink/pkg/link/bridge/websocket"
	"github.com/robotalks/nowlink/pkg/link/loopback"
	"github.com/robotalks/nowlink/pkg/link/mqtt"
	"github.com/robotalks/nowlink/pkg/link/udp"
	"github.com/robotalks/nowlink/pkg/wire"
)

// Config provides common options to set up the broadcast link.
type Config struct {
	// DeviceID is the identity byte, negative to derive it from the machine ID.
	DeviceID int
	// LinkURL selects the link driver, e.g.
	//   loop://
	//   udp://239.78.79.87:4210?ifname=eth0
	//   mqtt://host:1883/nowlink/
	//   serial:///dev/ttyUSB0?baud=115200
	//   ws://host:8080/air
	// The query parameter mac sets the local hardware address.
	LinkURL string
	// Channel is the channel of the broadcast peer.
	Channel uint
}

// DefaultBaud is the serial baud rate when not specified.
const DefaultBaud = 115200

var defaultConfig = Config{
	DeviceID: -1,
	LinkURL:  "udp://",
	Channel:  uint(link.DefaultChannel),
}

var (
	sharedAir     *loopback.Air
	sharedAirOnce sync.Once
)

func init() {
	if val := os.Getenv("NOWLINK_ID"); val != "" {
		if id, err := strconv.Atoi(val); err == nil {
			defaultConfig.DeviceID = id
		}
	}
	if val := os.Getenv("NOWLINK_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("NOWLINK_CHANNEL"); val != "" {
		if ch, err := strconv.ParseUint(val, 10, 8); err == nil {
			defaultConfig.Channel = uint(ch)
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID (0-255), -1 to derive from machine ID.")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Link URL (loop, udp, mqtt, serial, ws).")
	flag.UintVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "Broadcast channel.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// SharedAir is the in-process medium used by loop:// links.
func SharedAir() *loopback.Air {
	sharedAirOnce.Do(func() { sharedAir = loopback.NewAir() })
	return sharedAir
}

// Identity resolves the device identity. Unless DeviceID is set, it is
// derived from the machine ID and the local link address, so processes
// sharing a host get different identities.
func (c *Config) Identity(addr link.HardwareAddr) (wire.DeviceID, error) {
	if c.DeviceID > 255 {
		return 0, fmt.Errorf("device ID %d out of range", c.DeviceID)
	}
	if c.DeviceID >= 0 {
		return wire.DeviceID(c.DeviceID), nil
	}
	id, err := MachineID()
	if err != nil {
		glog.Warningf("machine ID unavailable, identity from link address only: %v", err)
	}
	return DeviceIDFor(id, addr), nil
}

// NewDriver creates the link driver selected by LinkURL.
func (c *Config) NewDriver() (link.Driver, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	addr := link.RandomAddr()
	if mac := u.Query().Get("mac"); mac != "" {
		if addr, err = link.ParseHardwareAddr(mac); err != nil {
			return nil, err
		}
	}
	switch u.Scheme {
	case "loop":
		return SharedAir().NewRadio(addr), nil
	case "udp":
		conf, err := udp.ConfigFromURL(c.LinkURL)
		if err != nil {
			return nil, err
		}
		return udp.NewDriver(*conf), nil
	case "mqtt", "tcp", "ssl":
		return mqtt.NewDriver(c.LinkURL)
	case "serial":
		baud := DefaultBaud
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud: %v", err)
			}
		}
		port := u.Path
		return bridge.NewDriver(func() (bridge.PacketReadWriter, error) {
			return stream.OpenSerial(port, baud)
		}, addr), nil
	case "ws", "wss":
		origin := "http://" + u.Host
		if u.Scheme == "wss" {
			origin = "https://" + u.Host
		}
		target := *u
		target.RawQuery = ""
		return bridge.NewDriver(func() (bridge.PacketReadWriter, error) {
			return websocket.Dial(target.String(), origin)
		}, addr), nil
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

// NewService creates the broadcast service on the configured link.
func (c *Config) NewService() (*broadcast.Service, error) {
	if c.Channel > 255 {
		return nil, fmt.Errorf("channel %d out of range", c.Channel)
	}
	drv, err := c.NewDriver()
	if err != nil {
		return nil, err
	}
	return broadcast.NewWithDriver(drv, uint8(c.Channel)), nil
}

// MustNewService creates the service and fails on error.
func (c *Config) MustNewService() *broadcast.Service {
	svc, err := c.NewService()
	if err != nil {
		log.Fatalln(err)
	}
	return svc
}

// MustIdentity resolves the identity and fails on error.
func (c *Config) MustIdentity(addr link.HardwareAddr) wire.DeviceID {
	id, err := c.Identity(addr)
	if err != nil {
		log.Fatalln(err)
	}
	return id
}
