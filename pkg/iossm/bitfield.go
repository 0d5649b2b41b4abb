// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements bit level decoding of 32-bit registers into structs.
// Each field carries a `bits:"lo:hi"` tag naming its bit range.

package iossm

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// CMD_REQ register layout
type CMD_REQ struct {
	Cmd_Opcode     uint16 `bits:"0:15"`
	Cmd_Type       uint8  `bits:"16:23"`
	Ip_Instance_ID uint8  `bits:"24:28"`
	Ip_Type        uint8  `bits:"29:31"`
}

// CMD_RESPONSE_STATUS register layout
type CMD_RESPONSE_STATUS struct {
	Cmd_Response_Ready        uint8  `bits:"0:0"`
	Status_General_Error      uint8  `bits:"1:4"`
	Status_Cmd_Response_Error uint8  `bits:"5:7"`
	Cmd_Response_Data_Short   uint16 `bits:"16:31"`
}

// IOSSM_STATUS register layout
type IOSSM_STATUS struct {
	Cal_Success uint8 `bits:"0:0"`
	Cal_Fail    uint8 `bits:"1:1"`
	Cal_Busy    uint8 `bits:"2:2"`
}

// BOOT_SCRATCH_COLD8 register layout
type BOOT_SCRATCH_COLD8 struct {
	IO96B_HPS    uint8 `bits:"27:28"`
	DDR_Progress uint8 `bits:"29:29"`
	OCRAM_DBE    uint8 `bits:"30:30"`
	DDR_DBE      uint8 `bits:"31:31"`
}

// RegisterLayouts names the layouts BitFieldDecode understands, for tools.
var RegisterLayouts = map[string]func() any{
	"cmd_req":             func() any { return &CMD_REQ{} },
	"cmd_response_status": func() any { return &CMD_RESPONSE_STATUS{} },
	"iossm_status":        func() any { return &IOSSM_STATUS{} },
	"boot_scratch_cold8":  func() any { return &BOOT_SCRATCH_COLD8{} },
}

func parseBitsTag(tag string) (lo, hi int, err error) {
	l, h, ok := strings.Cut(tag, ":")
	if !ok {
		return 0, 0, fmt.Errorf("bad bits tag %q", tag)
	}
	if lo, err = strconv.Atoi(l); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.Atoi(h); err != nil {
		return 0, 0, err
	}
	if lo < 0 || hi > 31 || lo > hi {
		return 0, 0, fmt.Errorf("bad bits range %q", tag)
	}
	return lo, hi, nil
}

// BitFieldDecode fills the tagged fields of the struct pointed to by data from reg.
// Fields without a bits tag are left untouched.
func BitFieldDecode(reg uint32, data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("bitfield.BitFieldDecode: invalid type " + reflect.TypeOf(data).String())
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("bits")
		if !ok {
			continue
		}
		lo, hi, err := parseBitsTag(tag)
		if err != nil {
			return fmt.Errorf("bitfield.BitFieldDecode: %s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
		val := u32field{offset: lo, bitwidth: hi - lo + 1}.read(reg)
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			if f.OverflowUint(uint64(val)) {
				return fmt.Errorf("bitfield.BitFieldDecode: %s.%s overflows %s", t.Name(), t.Field(i).Name, f.Kind())
			}
			f.SetUint(uint64(val))
		case reflect.Bool:
			f.SetBool(val != 0)
		default:
			return fmt.Errorf("bitfield.BitFieldDecode: %s.%s unsupported kind %s", t.Name(), t.Field(i).Name, f.Kind())
		}
	}
	klog.V(DBG_LVL_DEEP_DETAIL).InfoS("bitfield.BitFieldDecode", "type", t.Name(), "reg", hex(reg), "fields", data)
	return nil
}
