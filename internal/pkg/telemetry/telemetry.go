// Package telemetry refreshes per-bus load data from Modbus-connected
// meters before a model build, so a dispatch run can use live demand
// instead of the static network table.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/amir013/opf/internal/pkg/network"
	"github.com/goburrow/modbus"
)

// DataType defines the Modbus register layout for decoding.
type DataType string

const (
	u16 DataType = "u16"
	i16 DataType = "i16"
	u32 DataType = "u32"
	i32 DataType = "i32"
	f32 DataType = "f32"
	f64 DataType = "f64"
)

// Register maps one meter value onto a bus load field. Field is
// "Pload" or "Qload"; the decoded per-unit value replaces that field
// on the addressed bus.
type Register struct {
	Bus      int      `json:"Bus"`
	Field    string   `json:"Field"`
	Address  uint16   `json:"Address"`
	DataType DataType `json:"DataType"`
	Scale    float64  `json:"Scale"`
}

// Config is the meter connection plus its register table.
type Config struct {
	IPAddr       string     `json:"IPAddr"`
	Port         string     `json:"Port"`
	SlaveID      byte       `json:"SlaveID"`
	Timeout      int        `json:"Timeout"`
	Registers    []Register `json:"Registers"`
	EnableLogger bool       `json:"EnableLogger"`
}

// Poller reads load registers from a single Modbus TCP target.
type Poller struct {
	handler   *modbus.TCPClientHandler
	registers []Register
}

// New reads a poller configuration from a JSON file.
func New(configPath string) (Poller, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Poller{}, err
	}
	cfg := Config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Poller{}, err
	}
	return NewPoller(cfg), nil
}

// NewPoller is a factory for the Poller struct.
func NewPoller(cfg Config) Poller {
	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID

	if cfg.EnableLogger {
		handler.Logger = log.New(os.Stdout, "modbus: ", log.LstdFlags)
	}

	return Poller{
		handler:   handler,
		registers: cfg.Registers,
	}
}

// ReadLoads polls every configured register. On a partial failure the
// successfully read values are returned along with the first error.
func (p Poller) ReadLoads() ([]Reading, error) {
	if err := p.handler.Connect(); err != nil {
		return nil, err
	}
	defer p.handler.Close()

	client := modbus.NewClient(p.handler)
	readings := make([]Reading, 0, len(p.registers))
	var firstErr error
	for _, reg := range p.registers {
		resp, err := client.ReadHoldingRegisters(reg.Address, sizeOf(reg.DataType))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		val := decode(resp, reg.DataType)
		if reg.Scale != 0 {
			val *= reg.Scale
		}
		readings = append(readings, Reading{Bus: reg.Bus, Field: reg.Field, Value: val})
	}
	return readings, firstErr
}

// Reading is one decoded load value.
type Reading struct {
	Bus   int
	Field string
	Value float64
}

// Apply overlays the readings onto a copy of the network and returns
// it; the input network is left untouched.
func Apply(net network.Network, readings []Reading) (network.Network, error) {
	buses := make([]network.Bus, len(net.Buses))
	copy(buses, net.Buses)
	net.Buses = buses

	for _, r := range readings {
		if r.Bus < 0 || r.Bus >= len(net.Buses) {
			return network.Network{}, fmt.Errorf("reading addresses bus %d outside [0,%d)", r.Bus, len(net.Buses))
		}
		switch r.Field {
		case "Pload":
			net.Buses[r.Bus].Pload = r.Value
		case "Qload":
			net.Buses[r.Bus].Qload = r.Value
		default:
			return network.Network{}, fmt.Errorf("reading addresses unknown field %q", r.Field)
		}
	}
	return net, nil
}
