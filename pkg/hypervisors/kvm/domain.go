package kvm

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/usestring/baselib/pkg/errors"
)

type domainXML struct {
	XMLName xml.Name  `xml:"domain"`
	Type    string    `xml:"type,attr"`
	Name    string    `xml:"name"`
	UUID    string    `xml:"uuid"`
	Memory  memoryXML `xml:"memory"`
	VCPU    int       `xml:"vcpu"`
	OS      osXML     `xml:"os"`
	OnOff   string    `xml:"on_poweroff"`
	OnReset string    `xml:"on_reboot"`
	OnCrash string    `xml:"on_crash"`
	Devices devices   `xml:"devices"`
}

type memoryXML struct {
	Unit  string `xml:"unit,attr"`
	Value int    `xml:",chardata"`
}

type osXML struct {
	Type    osType `xml:"type"`
	Kernel  string `xml:"kernel,omitempty"`
	Initrd  string `xml:"initrd,omitempty"`
	Cmdline string `xml:"cmdline,omitempty"`
}

type osType struct {
	Arch    string `xml:"arch,attr"`
	Machine string `xml:"machine,attr"`
	Value   string `xml:",chardata"`
}

// devices carries disk and interface elements verbatim in Raw.
type devices struct {
	Emulator string  `xml:"emulator"`
	Raw      string  `xml:",innerxml"`
	Console  console `xml:"console"`
}

type console struct {
	Type   string        `xml:"type,attr"`
	Target consoleTarget `xml:"target"`
}

type consoleTarget struct {
	Type string `xml:"type,attr"`
	Port string `xml:"port,attr"`
}

// netboot holds the kernel, initrd and command line for a network boot.
type netboot struct {
	Kernel  string
	Initrd  string
	Cmdline string
}

// guestDomain is the libvirt description of a guest built from start
// parameters.
type guestDomain struct {
	name    string
	uuid    string
	cpu     int
	memory  int
	devices []string
}

// newGuestDomain collects the devices described by the storage_volumes and
// ifaces parameters.
func newGuestDomain(name string, cpu, memory int, parameters map[string]any) (*guestDomain, error) {
	d := &guestDomain{name: name, uuid: uuid.NewString(), cpu: cpu, memory: memory}

	volumes, _ := parameters["storage_volumes"].([]any)
	for i, v := range volumes {
		vol, _ := v.(map[string]any)
		if raw, ok := vol["libvirt"].(string); ok && raw != "" {
			d.devices = append(d.devices, raw)
			continue
		}
		path, _ := vol["path"].(string)
		if path == "" {
			return nil, errors.NewWithContext(errors.ErrCodeDriver,
				"storage volume needs a path or a libvirt definition",
				map[string]any{"index": i})
		}
		boot := ""
		if b, _ := vol["boot_device"].(bool); b {
			boot = `<boot order="1"/>`
		}
		d.devices = append(d.devices, fmt.Sprintf(
			`<disk type="block" device="disk"><driver name="qemu" type="raw" cache="none"/>`+
				`<source dev=%q/><target dev="vd%c" bus="virtio"/>%s</disk>`,
			path, 'a'+rune(i), boot))
	}

	ifaces, _ := parameters["ifaces"].([]any)
	for _, v := range ifaces {
		iface, _ := v.(map[string]any)
		attrs, _ := iface["attributes"].(map[string]any)
		if raw, ok := attrs["libvirt"].(string); ok && raw != "" {
			d.devices = append(d.devices, raw)
		}
	}
	return d, nil
}

// XML renders the domain. A non-nil boot adds direct kernel boot elements.
func (d *guestDomain) XML(boot *netboot) (string, error) {
	dom := domainXML{
		Type:    "kvm",
		Name:    d.name,
		UUID:    d.uuid,
		Memory:  memoryXML{Unit: "MiB", Value: d.memory},
		VCPU:    d.cpu,
		OS:      osXML{Type: osType{Arch: "s390x", Machine: "s390-ccw-virtio", Value: "hvm"}},
		OnOff:   "destroy",
		OnReset: "restart",
		OnCrash: "preserve",
		Devices: devices{
			Emulator: "/usr/bin/qemu-system-s390x",
			Console:  console{Type: "pty", Target: consoleTarget{Type: "sclp", Port: "0"}},
		},
	}
	dom.Devices.Raw = strings.Join(d.devices, "")
	if boot != nil {
		dom.OS.Kernel = boot.Kernel
		dom.OS.Initrd = boot.Initrd
		dom.OS.Cmdline = boot.Cmdline
	}

	out, err := xml.MarshalIndent(dom, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDriver, "cannot render domain xml", err)
	}
	return string(out), nil
}
