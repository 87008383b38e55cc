package xsensor

import (
	"fmt"
)

// ConfigError is fatal to one listener: it never binds.
type ConfigError struct {
	Sensor string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sensor %s: config: %v", e.Sensor, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BindError is fatal to one listener: its socket could not be opened.
type BindError struct {
	Sensor string
	Addr   string
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("sensor %s: bind %s: %v", e.Sensor, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ReceiveError is reported and the receive loop carries on.
type ReceiveError struct {
	Sensor string
	Err    error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("sensor %s: receive: %v", e.Sensor, e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// ShortPacketError marks a datagram that was skipped because it could not
// hold a full sample vector. It unwraps to xfixed.ErrShortPacket.
type ShortPacketError struct {
	Sensor string
	Len    int
	Err    error
}

func (e *ShortPacketError) Error() string {
	return fmt.Sprintf("sensor %s: %d byte datagram: %v", e.Sensor, e.Len, e.Err)
}

func (e *ShortPacketError) Unwrap() error { return e.Err }
