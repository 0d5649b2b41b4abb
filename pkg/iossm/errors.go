// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm

import (
	"errors"
	"fmt"
)

// Boot fatal error classes. Every error returned by this package wraps one of these.
var (
	ErrTransportBusy      = errors.New("mailbox request register not cleared")
	ErrResponseTimeout    = errors.New("mailbox response not ready")
	ErrInvalidRequest     = errors.New("invalid mailbox request")
	ErrMismatch           = errors.New("memory interfaces disagree")
	ErrNoValidSize        = errors.New("no valid memory size")
	ErrInitNotAccepted    = errors.New("full memory init not accepted")
	ErrInitTimeout        = errors.New("full memory init timeout")
	ErrCalibrationFailed  = errors.New("calibration failed")
	ErrCalibrationTimeout = errors.New("calibration status timeout")
	ErrPLLNotLocked       = errors.New("pll not locked")
	ErrRAMSize            = errors.New("device tree ram size exceeds hardware size")
	ErrMPFEConfig         = errors.New("mpfe sideband mode not set")
	ErrInvalidTransition  = errors.New("invalid calibration state transition")
)

// MailboxError carries the raw response status captured when a mailbox handshake fails.
type MailboxError struct {
	Err     error
	Base    uint64
	Request Request
	Status  uint32
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("iossm 0x%X %s/%s: %v (status 0x%X general_error 0x%X cmd_error 0x%X)",
		e.Base, e.Request.CmdType, e.Request.Opcode, e.Err, e.Status,
		CMD_RESPONSE_STATUS_GENERAL_ERROR.read(e.Status), CMD_RESPONSE_STATUS_CMD_ERROR.read(e.Status))
}

func (e *MailboxError) Unwrap() error {
	return e.Err
}

// InterfaceError names the instance and interface a per-interface operation failed on.
type InterfaceError struct {
	Err       error
	Instance  int
	Interface int
	Code      uint32 // command specific diagnostic code, when there is one
}

func (e *InterfaceError) Error() string {
	return fmt.Sprintf("IO96B_%d interface %d: %v (code 0x%X)", e.Instance, e.Interface, e.Err, e.Code)
}

func (e *InterfaceError) Unwrap() error {
	return e.Err
}
