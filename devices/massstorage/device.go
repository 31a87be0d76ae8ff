package massstorage

import (
	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

var log = logrus.WithField("component", "devices.massstorage")

const (
	msRequestMassStorageReset = 0xff
	msRequestGetMaxLUN        = 0xfe
)

// New builds an emulated USB Mass Storage device speaking Bulk-Only
// Transport over a single bulk IN/OUT pair, with a SCSI sub-dispatcher
// keyed by opcode (scsi.go) standing in for the class request table a
// non-storage device would use (spec.md 4.F Open Question 3).
func New() *usb.Device {
	dev := usb.NewDevice(0x0951, 0x1643) // Kingston DataTraveler-style VID/PID
	dev.DeviceRelease = 0x0100
	dev.DeviceClass = 0x00
	dev.MaxPacketSizeEP0 = 64

	idx, err := dev.Strings.Add("nu-map Inc.")
	if err != nil {
		panic(err)
	}
	dev.ManufacturerIndex = idx
	idx, err = dev.Strings.Add("nu-map Mass Storage")
	if err != nil {
		panic(err)
	}
	dev.ProductIndex = idx
	idx, err = dev.Strings.Add("NU-MAP-MSD-0001")
	if err != nil {
		panic(err)
	}
	dev.SerialNumberIndex = idx

	store := &backingStore{}
	scsi := newSCSITable(store)

	var pendingWrite struct {
		active bool
		tag    uint32
		lba    uint32
		remain uint32
		buf    []byte
	}

	epOut := &usb.Endpoint{Number: 1, Direction: usb.DirectionOut, TransferType: usb.TransferBulk, MaxPacketSize: 0x200}
	epIn := &usb.Endpoint{Number: 1, Direction: usb.DirectionIn, TransferType: usb.TransferBulk, MaxPacketSize: 0x200}

	epOut.OnData = func(data []byte) error {
		if pendingWrite.active {
			pendingWrite.buf = append(pendingWrite.buf, data...)
			if uint32(len(pendingWrite.buf)) >= pendingWrite.remain {
				store.writeBlocks(pendingWrite.lba, pendingWrite.buf[:pendingWrite.remain])
				epIn.Write(buildCSW(pendingWrite.tag, 0, cswStatusGood))
				pendingWrite.active = false
				dev.UsbFunctionSupported("WRITE10")
			}
			return nil
		}

		cbw, ok := parseCBW(data)
		if !ok {
			log.Warn("malformed CBW, ignoring")
			return nil
		}

		opcode := cbw.commandBlock[0]
		fn, name, found := scsi.lookup(opcode)
		if !found {
			epIn.Write(buildCSW(cbw.tag, cbw.dataLength, cswStatusFail))
			return nil
		}

		dev.UsbFunctionSupported(name)

		if opcode == scsiWrite10 {
			pendingWrite.active = true
			pendingWrite.tag = cbw.tag
			pendingWrite.lba = beLBA(cbw.commandBlock)
			pendingWrite.remain = cbw.dataLength
			pendingWrite.buf = pendingWrite.buf[:0]
			return nil
		}

		resp, status := fn(cbw.commandBlock, cbw.dataLength)
		if resp != nil {
			epIn.Write(resp)
		}
		epIn.Write(buildCSW(cbw.tag, 0, status))
		return nil
	}

	itf := &usb.Interface{
		InterfaceNumber: 0, AlternateSetting: 0,
		Class: 0x08, SubClass: 0x06 /* SCSI transparent */, Protocol: 0x50, /* Bulk-Only Transport */
		Endpoints: []*usb.Endpoint{epOut, epIn},
	}

	vendorHandlers := usb.NewHandlerTable(nil, nil)
	vendorHandlers.Override(msRequestGetMaxLUN, "get_max_lun", func(setup *usb.SetupPacket) ([]byte, error) {
		return []byte{0x00}, nil
	})
	vendorHandlers.Override(msRequestMassStorageReset, "mass_storage_reset", func(setup *usb.SetupPacket) ([]byte, error) {
		pendingWrite.active = false
		return nil, nil
	})
	itf.VendorHandlers = vendorHandlers

	conf := usb.NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(itf)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}

func beLBA(cb [16]byte) uint32 {
	return uint32(cb[2])<<24 | uint32(cb[3])<<16 | uint32(cb[4])<<8 | uint32(cb[5])
}
