package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"math"
	"path/filepath"
	"testing"

	"github.com/amir013/opf/internal/pkg/network"
	"gotest.tools/v3/assert"
)

func TestDecodeDataTypes(t *testing.T) {
	assert.Equal(t, decode([]byte{0x01, 0x00}, u16), 256.0)
	assert.Equal(t, decode([]byte{0xff, 0xff}, i16), -1.0)
	assert.Equal(t, decode([]byte{0x00, 0x01, 0x00, 0x00}, u32), 65536.0)
	assert.Equal(t, decode([]byte{0xff, 0xff, 0xff, 0xfe}, i32), -2.0)

	f32buf := make([]byte, 4)
	binary.BigEndian.PutUint32(f32buf, math.Float32bits(0.45))
	assert.Equal(t, decode(f32buf, f32), float64(float32(0.45)))

	f64buf := make([]byte, 8)
	binary.BigEndian.PutUint64(f64buf, math.Float64bits(0.45))
	assert.Equal(t, decode(f64buf, f64), 0.45)
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, sizeOf(u16), uint16(1))
	assert.Equal(t, sizeOf(i16), uint16(1))
	assert.Equal(t, sizeOf(u32), uint16(2))
	assert.Equal(t, sizeOf(i32), uint16(2))
	assert.Equal(t, sizeOf(f32), uint16(2))
	assert.Equal(t, sizeOf(f64), uint16(4))
}

func TestApplyOverlaysLoads(t *testing.T) {
	base := network.IEEE5()
	readings := []Reading{
		{Bus: 1, Field: "Pload", Value: 0.30},
		{Bus: 4, Field: "Qload", Value: 0.05},
	}

	live, err := Apply(base, readings)
	assert.NilError(t, err)
	assert.Equal(t, live.Buses[1].Pload, 0.30)
	assert.Equal(t, live.Buses[4].Qload, 0.05)

	// The input network is untouched.
	assert.Equal(t, base.Buses[1].Pload, network.IEEE5().Buses[1].Pload)
}

func TestApplyRejectsBadReadings(t *testing.T) {
	net := network.IEEE5()

	_, err := Apply(net, []Reading{{Bus: 9, Field: "Pload", Value: 1}})
	assert.ErrorContains(t, err, "outside")

	_, err = Apply(net, []Reading{{Bus: 0, Field: "Vload", Value: 1}})
	assert.ErrorContains(t, err, "unknown field")
}

func TestNewReadsConfig(t *testing.T) {
	cfg := Config{
		IPAddr:  "192.168.0.100",
		Port:    "502",
		SlaveID: 1,
		Timeout: 1000,
		Registers: []Register{
			{Bus: 0, Field: "Pload", Address: 0, DataType: f32, Scale: 0.01},
		},
	}
	body, err := json.Marshal(cfg)
	assert.NilError(t, err)

	path := filepath.Join(t.TempDir(), "telemetry.json")
	assert.NilError(t, ioutil.WriteFile(path, body, 0644))

	p, err := New(path)
	assert.NilError(t, err)
	assert.Equal(t, len(p.registers), 1)
	assert.Equal(t, p.registers[0].DataType, f32)
	assert.Equal(t, p.handler.Address, "192.168.0.100:502")
}

func TestReadLoadsUnreachableTarget(t *testing.T) {
	p := NewPoller(Config{IPAddr: "127.0.0.1", Port: "1", Timeout: 50})
	_, err := p.ReadLoads()
	assert.Assert(t, err != nil)
}
