// Command bdpi builds the shared library that a hardware simulator loads to
// drive native device models. Build it with
//
//	go build -buildmode=c-shared -o libcosim.so ./cmd/bdpi
//
// Every exported function takes and returns plain integers. Devices and
// ports are addressed by handles; 0 is the null handle.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/sarchlab/cosim/bridge"
	"github.com/sarchlab/cosim/devices/memscanchain"
	"github.com/sarchlab/cosim/devices/ticker"
)

//export bdpi_init
func bdpi_init() {
	process.bridge()
}

//export bdpi_terminate
func bdpi_terminate() {
	process.terminate()
}

//export init_Ticker
func init_Ticker() {
	process.ensureRegistered(ticker.Register)
}

//export bdpi_initMemScanChainTest
func bdpi_initMemScanChainTest() {
	process.ensureRegistered(memscanchain.Register)
}

//export bdpi_createDeviceFromFactory
func bdpi_createDeviceFromFactory(
	devType *C.char,
	arg *C.char,
	data *C.uint32_t,
) C.uint64_t {
	h := process.buildDevice(
		C.GoString(devType),
		goString(arg),
		(*uint32)(unsafe.Pointer(data)))

	return C.uint64_t(h)
}

//export bdpi_createDeviceFromFactoryN
func bdpi_createDeviceFromFactoryN(
	devType *C.char,
	arg *C.char,
	data *C.uint32_t,
	ndata C.uint32_t,
) C.uint64_t {
	h := process.buildDeviceN(
		C.GoString(devType),
		goString(arg),
		(*uint32)(unsafe.Pointer(data)),
		int(ndata))

	return C.uint64_t(h)
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}

	return C.GoString(s)
}

//export bdpi_deviceTick
func bdpi_deviceTick(dev C.uint64_t, t C.uint64_t) {
	process.bridge().Tick(bridge.Handle(dev), uint64(t))
}

//export bdpi_deviceClose
func bdpi_deviceClose(dev C.uint64_t) {
	process.bridge().Close(bridge.Handle(dev))
}

//export bdpi_deviceGetPort
func bdpi_deviceGetPort(dev C.uint64_t, index C.uint8_t) C.uint64_t {
	return C.uint64_t(process.bridge().GetPort(bridge.Handle(dev), uint8(index)))
}

//export bdpi_portGetStatus
func bdpi_portGetStatus(p C.uint64_t) C.uint8_t {
	return C.uint8_t(process.bridge().PortStatus(bridge.Handle(p)))
}

//export bdpi_portGetReadData
func bdpi_portGetReadData(ret *C.uint32_t, p C.uint64_t) {
	h := bridge.Handle(p)

	n := process.bridge().PortWidth(h)
	if ret == nil || n == 0 {
		return
	}

	process.readPort(h, unsafe.Slice((*uint32)(unsafe.Pointer(ret)), n))
}

//export bdpi_portPutWriteData
func bdpi_portPutWriteData(p C.uint64_t, data *C.uint32_t) {
	h := bridge.Handle(p)

	n := process.bridge().PortWidth(h)
	if data == nil || n == 0 {
		return
	}

	process.writePort(h, unsafe.Slice((*uint32)(unsafe.Pointer(data)), n))
}

//export bdpi_portClose
func bdpi_portClose(p C.uint64_t) {
	process.bridge().PortClose(bridge.Handle(p))
}

func main() {}
