// Package params declares the typed parameters of every validated driver
// operation. The shipped schema files are generated from these types with
// Generate, so the JSON documents and the Go view never drift apart.
package params

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/usestring/baselib/pkg/types"
)

// Open is an object schema accepting any properties.
type Open struct{}

// JSONSchemaExtend lifts the closed-object default of the reflector.
func (Open) JSONSchemaExtend(s *jsonschema.Schema) {
	s.AdditionalProperties = nil
}

// HMCBootParams selects how an LPAR is loaded.
type HMCBootParams struct {
	BootMethod    string `json:"boot_method" jsonschema:"enum=dasd,enum=scsi"`
	Devicenr      string `json:"devicenr,omitempty" jsonschema:"pattern=^[0-9a-fA-F.]+$"`
	IfaceDevicenr string `json:"iface_devicenr,omitempty" jsonschema:"pattern=^[0-9a-fA-F.]+$"`
	WWPN          string `json:"wwpn,omitempty" jsonschema:"pattern=^(0x)?[0-9a-fA-F]{16}$"`
	LUN           string `json:"lun,omitempty" jsonschema:"pattern=^(0x)?[0-9a-fA-F]+$"`
}

// HMCStart are the parameters of hmc start.
type HMCStart struct {
	CPCName    string        `json:"cpc_name" jsonschema:"minLength=1"`
	IFLCPUs    int           `json:"ifl_cpus,omitempty" jsonschema:"minimum=0"`
	BootParams HMCBootParams `json:"boot_params"`
}

// HMCStop are the parameters of hmc stop.
type HMCStop struct {
	CPCName string `json:"cpc_name" jsonschema:"minLength=1"`
}

// KVMVolume is a disk attached to a KVM guest.
type KVMVolume struct {
	Path       string `json:"path,omitempty"`
	Libvirt    string `json:"libvirt,omitempty"`
	BootDevice bool   `json:"boot_device,omitempty"`
}

// KVMIfaceAttributes carries the libvirt definition of an interface.
type KVMIfaceAttributes struct {
	Libvirt string `json:"libvirt" jsonschema:"minLength=1"`
}

// KVMIface is a network interface attached to a KVM guest.
type KVMIface struct {
	Attributes KVMIfaceAttributes `json:"attributes"`
}

// KVMBootOptions are the files used by a network boot.
type KVMBootOptions struct {
	KernelURI string `json:"kernel_uri" jsonschema:"format=uri"`
	InitrdURI string `json:"initrd_uri" jsonschema:"format=uri"`
	Cmdline   string `json:"cmdline,omitempty"`
}

// KVMBoot selects the boot method of a KVM guest.
type KVMBoot struct {
	BootMethod  string          `json:"boot_method" jsonschema:"enum=disk,enum=network"`
	BootOptions *KVMBootOptions `json:"boot_options,omitempty"`
}

// KVMStart are the parameters of kvm start.
type KVMStart struct {
	StorageVolumes []KVMVolume `json:"storage_volumes,omitempty"`
	Ifaces         []KVMIface  `json:"ifaces,omitempty"`
	Parameters     *KVMBoot    `json:"parameters,omitempty"`
}

// ZVMInit are the constructor parameters of the zvm driver.
type ZVMInit struct {
	Here   bool   `json:"here,omitempty"`
	NoIPL  bool   `json:"noipl,omitempty"`
	ByUser string `json:"byuser,omitempty"`
}

// LinuxHotplug are the parameters of linux hotplug.
type LinuxHotplug struct {
	Timeout int `json:"timeout,omitempty" jsonschema:"minimum=1"`
}

// Key identifies the schema of one operation of one family.
type Key struct {
	Family    string
	Operation string
}

// String returns "family/operation".
func (k Key) String() string {
	return k.Family + "/" + k.Operation
}

// All maps every validated operation to the type describing its parameters.
var All = map[Key]any{
	{"hmc", types.OpStart}:     HMCStart{},
	{"hmc", types.OpStop}:      HMCStop{},
	{"kvm", types.OpInit}:      Open{},
	{"kvm", types.OpStart}:     KVMStart{},
	{"kvm", types.OpStop}:      Open{},
	{"kvm", types.OpReboot}:    Open{},
	{"zvm", types.OpInit}:      ZVMInit{},
	{"zvm", types.OpStop}:      Open{},
	{"linux", types.OpHotplug}: LinuxHotplug{},
	{"cms", types.OpHotplug}:   Open{},
}

// Keys returns the keys of All sorted by family and operation.
func Keys() []Key {
	keys := make([]Key, 0, len(All))
	for k := range All {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// Generate returns the indented JSON Schema document of key.
func Generate(key Key) ([]byte, error) {
	v, ok := All[key]
	if !ok {
		return nil, fmt.Errorf("no parameters type for %s", key)
	}
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.Reflect(v)
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for %s: %w", key, err)
	}
	return append(out, '\n'), nil
}
