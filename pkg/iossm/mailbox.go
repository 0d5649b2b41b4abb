// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the IOSSM mailbox request/response flow
package iossm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

// Request is one IOSSM mailbox command. IPType/InstanceID are 0/0 when the command
// addresses the IOSSM itself rather than a memory interface.
type Request struct {
	IPType     uint8
	InstanceID uint8
	CmdType    CmdType
	Opcode     Opcode
	Params     [NUM_CMD_PARAM]uint32
	RespWords  int // CMD_RESPONSE_DATA_* words to read, 0..3
}

// Response holds the status word and the requested response data words.
type Response struct {
	Status uint32
	Data   [NUM_CMD_RESPONSE_DATA]uint32
	Words  int
}

func (r Response) Ready() bool          { return CMD_RESPONSE_STATUS_READY.read(r.Status) != 0 }
func (r Response) GeneralError() uint32 { return CMD_RESPONSE_STATUS_GENERAL_ERROR.read(r.Status) }
func (r Response) CmdError() uint32     { return CMD_RESPONSE_STATUS_CMD_ERROR.read(r.Status) }

// Short returns the CMD_RESPONSE_DATA_SHORT field of the status word.
func (r Response) Short() uint32 { return CMD_RESPONSE_STATUS_DATA_SHORT.read(r.Status) }

// Transaction is one completed or failed mailbox exchange, as reported to a Tracer.
type Transaction struct {
	Base     uint64
	Request  Request
	Response Response
	Err      error
	Start    time.Time
	End      time.Time
}

// Tracer observes mailbox transactions.
type Tracer interface {
	Transaction(t Transaction)
}

// Mailbox is the host side of the IOSSM command channel. One request is outstanding
// at a time; the CMD_REQ handshake provides the mutual exclusion.
type Mailbox struct {
	bus    Bus
	poller Poller
	tracer Tracer
}

func NewMailbox(bus Bus, poller Poller) *Mailbox {
	return &Mailbox{bus: bus, poller: poller}
}

func (mb *Mailbox) SetTracer(t Tracer) {
	mb.tracer = t
}

// General mailbox command flow
func (mb *Mailbox) Send(ctx context.Context, base uint64, req Request) (Response, error) {
	start := mb.poller.clock().Now()
	resp, err := mb.send(ctx, base, req)
	if mb.tracer != nil {
		mb.tracer.Transaction(Transaction{
			Base:     base,
			Request:  req,
			Response: resp,
			Err:      err,
			Start:    start,
			End:      mb.poller.clock().Now(),
		})
	}
	return resp, err
}

func (mb *Mailbox) send(ctx context.Context, base uint64, req Request) (Response, error) {
	var resp Response

	if req.RespWords < 0 || req.RespWords > NUM_CMD_RESPONSE_DATA {
		return resp, fmt.Errorf("%w: %d response words", ErrInvalidRequest, req.RespWords)
	}

	//1. Ensure CMD_REQ is cleared before writing any command request
	err := mb.poller.WaitForBit(ctx, mb.bus, base+IOSSM_CMD_REQ_OFFSET, 0xFFFFFFFF, false)
	if err != nil {
		return resp, mb.fail(base, req, ErrTransportBusy, err)
	}

	//2. Write the non-zero CMD_PARAM_* registers
	for i, p := range req.Params {
		if p != 0 {
			mb.bus.Write32(base+CMD_PARAM_OFFSETS[i], p)
		}
	}

	//3. Write CMD_REQ (IP_TYPE, IP_INSTANCE_ID, CMD_TYPE and CMD_OPCODE)
	cmdReq := EncodeRequest(req.IPType, req.InstanceID, req.CmdType, req.Opcode)
	mb.bus.Write32(base+IOSSM_CMD_REQ_OFFSET, cmdReq)
	klog.V(DBG_LVL_DETAIL).Infof("iossm-mailbox.Send: write 0x%X to CMD_REQ 0x%X", cmdReq, base+IOSSM_CMD_REQ_OFFSET)

	//4. Poll CMD_RESPONSE_READY in CMD_RESPONSE_STATUS
	err = mb.poller.WaitForBit(ctx, mb.bus, base+IOSSM_CMD_RESPONSE_STATUS_OFFSET,
		CMD_RESPONSE_STATUS_READY.mask(), true)
	if err != nil {
		return resp, mb.fail(base, req, ErrResponseTimeout, err)
	}

	//5. Read CMD_RESPONSE_STATUS and CMD_RESPONSE_DATA_*
	resp.Status = mb.bus.Read32(base + IOSSM_CMD_RESPONSE_STATUS_OFFSET)
	resp.Words = req.RespWords
	for i := 0; i < req.RespWords; i++ {
		resp.Data[i] = mb.bus.Read32(base + CMD_RESPONSE_DATA_OFFSETS[i])
	}
	klog.V(DBG_LVL_DETAIL).InfoS("iossm-mailbox.Send", "base", hex(base), "status", hex(resp.Status), "data", resp.Data[:resp.Words])

	//6. Acknowledge by clearing CMD_RESPONSE_READY
	clrBits(mb.bus, base+IOSSM_CMD_RESPONSE_STATUS_OFFSET, CMD_RESPONSE_STATUS_READY.mask())
	after := mb.bus.Read32(base + IOSSM_CMD_RESPONSE_STATUS_OFFSET)
	klog.V(DBG_LVL_DEEP_DETAIL).Infof("iossm-mailbox.Send: CMD_RESPONSE_STATUS after ack 0x%X", after)

	return resp, nil
}

// fail captures the raw status for diagnostics and builds the returned error.
func (mb *Mailbox) fail(base uint64, req Request, class error, cause error) error {
	if !errors.Is(cause, errPollTimeout) {
		// cancelled
		return fmt.Errorf("%w: %w", class, cause)
	}
	status := mb.bus.Read32(base + IOSSM_CMD_RESPONSE_STATUS_OFFSET)
	e := &MailboxError{Err: class, Base: base, Request: req, Status: status}
	var fields CMD_RESPONSE_STATUS
	_ = BitFieldDecode(status, &fields)
	klog.ErrorS(class, "iossm-mailbox.Send: CMD_RESPONSE ERROR", "base", hex(base),
		"cmd", req.CmdType, "opcode", req.Opcode, "status", hex(status), "fields", fields)
	return e
}

func hex(a any) string {
	return fmt.Sprintf("0x%X", a)
}
