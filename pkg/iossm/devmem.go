// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements register access through /dev/mem
package iossm

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"unsafe"

	"k8s.io/klog/v2"
)

const pageSize = 0x1000

// DevMemBus maps 4k windows of physical memory, up front through Map or on
// first access. Bus accessors cannot return errors: a failed mapping or an
// unaligned access reads as 0, drops the write and is kept for Err.
type DevMemBus struct {
	devMemFile *os.File
	windows    map[uint64][]byte // keyed by 4k aligned physical address
	err        error
}

func OpenDevMem() (*DevMemBus, error) {
	return openMemFile("/dev/mem")
}

func openMemFile(path string) (*DevMemBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	klog.V(DBG_LVL_BASIC).InfoS("iossm.DevMemBus: opened", "path", path)
	return &DevMemBus{devMemFile: f, windows: map[uint64][]byte{}}, nil
}

// Map maps every 4k window covering [addr, addr+size).
func (d *DevMemBus) Map(addr, size uint64) error {
	for a := addr &^ (pageSize - 1); a < addr+size; a += pageSize {
		if _, err := d.window(a); err != nil {
			return err
		}
	}
	return nil
}

// Err returns the first access error since the bus was opened.
func (d *DevMemBus) Err() error {
	return d.err
}

func (d *DevMemBus) window(addr uint64) ([]byte, error) {
	aligned := addr &^ (pageSize - 1)
	if w, ok := d.windows[aligned]; ok {
		return w, nil
	}
	w, err := syscall.Mmap(int(d.devMemFile.Fd()), int64(aligned), pageSize, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("iossm.DevMemBus: mmap phyaddr 0x%X: %w", aligned, err)
	}
	klog.V(DBG_LVL_INFO).Infof("iossm.DevMemBus: mmap phyaddr 0x%X size 0x%X", aligned, pageSize)
	d.windows[aligned] = w
	return w, nil
}

func (d *DevMemBus) reg(addr uint64) *uint32 {
	var err error
	if addr&0x3 != 0 {
		err = fmt.Errorf("iossm.DevMemBus: unaligned register address 0x%X", addr)
	} else {
		var w []byte
		if w, err = d.window(addr); err == nil {
			return (*uint32)(unsafe.Pointer(&w[addr&(pageSize-1)]))
		}
	}
	klog.ErrorS(err, "iossm.DevMemBus: register access failed", "addr", hex(addr))
	if d.err == nil {
		d.err = err
	}
	return nil
}

func (d *DevMemBus) Read32(addr uint64) uint32 {
	r := d.reg(addr)
	if r == nil {
		return 0
	}
	return atomic.LoadUint32(r)
}

func (d *DevMemBus) Write32(addr uint64, val uint32) {
	if r := d.reg(addr); r != nil {
		atomic.StoreUint32(r, val)
	}
}

// Close unmaps every window and closes /dev/mem.
func (d *DevMemBus) Close() error {
	for a, w := range d.windows {
		if err := syscall.Munmap(w); err != nil {
			klog.V(DBG_LVL_BASIC).Info(err)
		}
		delete(d.windows, a)
	}
	return d.devMemFile.Close()
}
