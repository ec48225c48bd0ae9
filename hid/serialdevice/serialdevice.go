// Package serialdevice implements hid.Device over a USB-CDC/serial
// control channel, the common transport for hobbyist and small-vendor
// direct-drive wheel-bases: probing a list of candidate ports for the
// first one that opens, a little-endian wire framing for torque-out
// and telemetry-in frames, and a single-slot telemetry state replaced
// by the read loop instead of queued through an unbounded channel.
package serialdevice

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tarm/serial"

	"ffbengine.dev/hid"
	"ffbengine.dev/internal/ffblog"
)

const (
	// frameTorqueOut is the header byte for an engine-to-device torque
	// command: header, int32 millinewton-metres, uint32 seq.
	frameTorqueOut = 0xf0
	// frameTelemetryIn is the header byte for a device-to-engine
	// telemetry push: header, int32 encoder ticks, int32 milli-rad/s,
	// int16 deci-celsius.
	frameTelemetryIn = 0xf1

	torqueOutSize   = 1 + 4 + 4
	telemetryInSize = 1 + 4 + 4 + 2
)

// defaultPorts is the per-OS default candidate list, tried in order
// when Config.Port is empty.
func defaultPorts() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM3", "COM4"}
	default:
		return []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyUSB1"}
	}
}

// Config configures Open.
type Config struct {
	// Port is the device path/name; if empty, Open probes
	// defaultPorts() in order.
	Port string
	// BaudRate defaults to 115200 if zero.
	BaudRate int
	// Caps is reported verbatim from Capabilities and survives
	// Disconnect/Reconnect.
	Caps hid.DeviceCapabilities
	// Logger defaults to ffblog.L if nil.
	Logger *ffblog.Logger
}

// telemetrySlot is a lock-free single-slot double buffer: the
// background read loop is the only writer, WriteFFB's RT-thread
// sibling ReadTelemetry the only reader, matching engine.telemetryBuffer's
// atomic front-index swap so neither side ever blocks.
type telemetrySlot struct {
	back  [2]hid.DeviceTelemetry
	have  atomic.Bool
	front atomic.Uint32
}

func (s *telemetrySlot) store(t hid.DeviceTelemetry) {
	next := 1 - s.front.Load()
	s.back[next] = t
	s.front.Store(next)
	s.have.Store(true)
}

func (s *telemetrySlot) load() (hid.DeviceTelemetry, bool) {
	return s.back[s.front.Load()], s.have.Load()
}

// Device is a serial-backed hid.Device.
type Device struct {
	cfg  Config
	log  *ffblog.Logger
	port string
	baud int

	// conn is swapped atomically so WriteFFB, called every RT tick,
	// never contends a mutex against Disconnect/Reconnect on the async
	// side.
	conn      atomic.Pointer[io.ReadWriteCloser]
	connected atomic.Bool

	telemetry telemetrySlot

	// lifecycleMu guards closeCh, touched only by the async-only
	// Disconnect/Reconnect pair, never by the RT tick path.
	lifecycleMu sync.Mutex
	closeCh     chan struct{}
}

var _ hid.Device = (*Device)(nil)

// Open probes for and connects to a serial wheel-base: it tries each
// candidate port in turn and returns the first success.
func Open(cfg Config) (*Device, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}
	ports := []string{cfg.Port}
	if cfg.Port == "" {
		ports = defaultPorts()
	}
	log := cfg.Logger
	if log == nil {
		log = ffblog.L
	}

	var firstErr error
	for _, p := range ports {
		c := &serial.Config{Name: p, Baud: baud}
		conn, err := serial.OpenPort(c)
		if err == nil {
			d := &Device{
				cfg:     cfg,
				log:     log,
				port:    p,
				baud:    baud,
				closeCh: make(chan struct{}),
			}
			var rwc io.ReadWriteCloser = conn
			d.conn.Store(&rwc)
			d.connected.Store(true)
			go d.readLoop(conn, d.closeCh)
			log.Info().Str(`port`, p).Log(`hid: serial device connected`)
			return d, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("serialdevice: no candidate ports")
	}
	return nil, firstErr
}

func (d *Device) String() string {
	return fmt.Sprintf("serialdevice(%s)", d.port)
}

// Halt implements conn.Resource; it is Disconnect under another name.
func (d *Device) Halt() error {
	return d.Disconnect()
}

func (d *Device) Capabilities() hid.DeviceCapabilities {
	return d.cfg.Caps
}

func (d *Device) IsConnected() bool {
	return d.connected.Load()
}

func (d *Device) WriteFFB(torqueNm float64, seq uint64) error {
	if !d.connected.Load() {
		return hid.ErrDisconnected
	}
	connPtr := d.conn.Load()
	if connPtr == nil {
		return hid.ErrDisconnected
	}
	conn := *connPtr

	milliNm := int32(torqueNm * 1000)
	var buf [torqueOutSize]byte
	buf[0] = frameTorqueOut
	buf[1] = byte(milliNm)
	buf[2] = byte(milliNm >> 8)
	buf[3] = byte(milliNm >> 16)
	buf[4] = byte(milliNm >> 24)
	s32 := uint32(seq)
	buf[5] = byte(s32)
	buf[6] = byte(s32 >> 8)
	buf[7] = byte(s32 >> 16)
	buf[8] = byte(s32 >> 24)

	if _, err := conn.Write(buf[:]); err != nil {
		d.connected.Store(false)
		return &hid.ErrTransport{Err: err}
	}
	return nil
}

func (d *Device) ReadTelemetry() (hid.DeviceTelemetry, bool) {
	return d.telemetry.load()
}

func (d *Device) Disconnect() error {
	connPtr := d.conn.Swap(nil)
	d.lifecycleMu.Lock()
	closeCh := d.closeCh
	d.lifecycleMu.Unlock()
	if connPtr == nil {
		return nil
	}
	d.connected.Store(false)
	if closeCh != nil {
		select {
		case <-closeCh:
		default:
			close(closeCh)
		}
	}
	return (*connPtr).Close()
}

// Reconnect re-opens the same port, returning the device to a
// writable state without discarding Capabilities (spec.md §4.9).
func (d *Device) Reconnect() error {
	baud := d.baud
	c := &serial.Config{Name: d.port, Baud: baud}
	conn, err := serial.OpenPort(c)
	if err != nil {
		return &hid.ErrTransport{Err: err}
	}
	var rwc io.ReadWriteCloser = conn
	d.conn.Store(&rwc)

	closeCh := make(chan struct{})
	d.lifecycleMu.Lock()
	d.closeCh = closeCh
	d.lifecycleMu.Unlock()

	d.connected.Store(true)
	go d.readLoop(conn, closeCh)
	d.log.Info().Str(`port`, d.port).Log(`hid: serial device reconnected`)
	return nil
}

// readLoop is the device's async-domain telemetry source: it blocks
// on I/O, decoding frames and replacing the single telemetry slot
// non-blocking, rather than queuing samples through an unbounded
// channel.
func (d *Device) readLoop(conn io.ReadWriteCloser, closeCh chan struct{}) {
	r := bufio.NewReaderSize(conn, telemetryInSize*4)
	for {
		select {
		case <-closeCh:
			return
		default:
		}
		header, err := r.ReadByte()
		if err != nil {
			d.connected.Store(false)
			return
		}
		if header != frameTelemetryIn {
			continue
		}
		body := make([]byte, telemetryInSize-1)
		if _, err := io.ReadFull(r, body); err != nil {
			d.connected.Store(false)
			return
		}
		ticks := int32(body[0]) | int32(body[1])<<8 | int32(body[2])<<16 | int32(body[3])<<24
		milliRadS := int32(body[4]) | int32(body[5])<<8 | int32(body[6])<<16 | int32(body[7])<<24
		deciC := int16(body[8]) | int16(body[9])<<8

		cpr := d.cfg.Caps.EncoderCPR
		var angleRad float64
		if cpr > 0 {
			angleRad = float64(ticks) / float64(cpr) * 2 * 3.14159265358979323846
		}

		d.telemetry.store(hid.DeviceTelemetry{
			WheelAngleRad:  angleRad,
			WheelSpeedRadS: float64(milliRadS) / 1000,
			TemperatureC:   float64(deciC) / 10,
		})
	}
}
