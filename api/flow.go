// File: api/flow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Flow control describes which I/O directions a connection is interested in.
// Values are immutable; modifiers produce new values.

package api

import "strings"

// FlowControl is the set of I/O directions currently of interest.
type FlowControl uint8

const (
	// FlowWait is the empty set: the connection waits for nothing.
	FlowWait FlowControl = 0

	FlowAccept  FlowControl = 1 << 0
	FlowConnect FlowControl = 1 << 1
	FlowRead    FlowControl = 1 << 2
	FlowWrite   FlowControl = 1 << 3

	FlowReadWrite FlowControl = FlowRead | FlowWrite
	flowAll       FlowControl = FlowAccept | FlowConnect | FlowRead | FlowWrite
)

func (f FlowControl) IsAcceptEnabled() bool  { return f&FlowAccept != 0 }
func (f FlowControl) IsConnectEnabled() bool { return f&FlowConnect != 0 }
func (f FlowControl) IsReadEnabled() bool    { return f&FlowRead != 0 }
func (f FlowControl) IsWriteEnabled() bool   { return f&FlowWrite != 0 }

// Modify returns f with the modifier's disable bits cleared and its enable bits
// set. When a modifier both disables and enables a direction, enable wins.
func (f FlowControl) Modify(m FlowModifier) FlowControl {
	return (f &^ m.disabled()) | m.enabled()
}

// String renders the enabled directions, e.g. "read|write".
func (f FlowControl) String() string {
	if f&flowAll == 0 {
		return "wait"
	}
	var parts []string
	if f.IsAcceptEnabled() {
		parts = append(parts, "accept")
	}
	if f.IsConnectEnabled() {
		parts = append(parts, "connect")
	}
	if f.IsReadEnabled() {
		parts = append(parts, "read")
	}
	if f.IsWriteEnabled() {
		parts = append(parts, "write")
	}
	return strings.Join(parts, "|")
}

// FlowModifier is a delta applied to a FlowControl. The low nibble disables
// directions, the high nibble enables them. Modifiers combine with |.
type FlowModifier uint8

const (
	DisableAccept  FlowModifier = FlowModifier(FlowAccept)
	DisableConnect FlowModifier = FlowModifier(FlowConnect)
	DisableRead    FlowModifier = FlowModifier(FlowRead)
	DisableWrite   FlowModifier = FlowModifier(FlowWrite)

	EnableAccept  FlowModifier = FlowModifier(FlowAccept) << 4
	EnableConnect FlowModifier = FlowModifier(FlowConnect) << 4
	EnableRead    FlowModifier = FlowModifier(FlowRead) << 4
	EnableWrite   FlowModifier = FlowModifier(FlowWrite) << 4

	DisableReadWrite       = DisableRead | DisableWrite
	EnableReadWrite        = EnableRead | EnableWrite
	DisableReadEnableWrite = DisableRead | EnableWrite
	EnableReadDisableWrite = EnableRead | DisableWrite
)

func (m FlowModifier) disabled() FlowControl { return FlowControl(m) & flowAll }
func (m FlowModifier) enabled() FlowControl  { return FlowControl(m>>4) & flowAll }

// Enables reports the directions the modifier turns on.
func (m FlowModifier) Enables() FlowControl { return m.enabled() }

// Disables reports the directions the modifier turns off.
func (m FlowModifier) Disables() FlowControl { return m.disabled() }
