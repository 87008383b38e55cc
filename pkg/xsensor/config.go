package xsensor

import (
	"net"
	"strconv"

	"imulog/pkg/xfixed"

	"github.com/pkg/errors"
)

// DefaultMsgLen is the configured message length of the reference IMU. The
// last byte is a reserved terminator and is never read from the socket.
const DefaultMsgLen = xfixed.PacketSize + 1

// Config describes one sensor socket. It is immutable once handed to a
// Listener.
type Config struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	MsgLen  int    `yaml:"msg_len"`
	RcvBuf  int    `yaml:"rcv_buf"`
}

func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "0.0.0.0"
	}
	if c.MsgLen == 0 {
		c.MsgLen = DefaultMsgLen
	}
}

func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	if net.ParseIP(c.Address) == nil {
		return errors.Errorf("address %q is not an IP", c.Address)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.RecvSize() < xfixed.PacketSize {
		return errors.Errorf("msg_len %d too small, need at least %d", c.MsgLen, xfixed.PacketSize+1)
	}
	if c.RcvBuf < 0 {
		return errors.Errorf("rcv_buf %d is negative", c.RcvBuf)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// ID names the sensor in events and logs.
func (c Config) ID() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Addr()
}

// RecvSize is the number of bytes read per datagram.
func (c Config) RecvSize() int {
	return c.MsgLen - 1
}
