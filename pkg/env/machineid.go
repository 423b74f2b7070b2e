package env

import (
	"hash/fnv"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/wire"
)

const appID = "nowlink"

// MachineID retrieves the app specific ID identifying the machine.
func MachineID() (string, error) {
	return machineid.ProtectedID(appID)
}

// DeviceIDFrom folds an arbitrary string into a DeviceID.
func DeviceIDFrom(s string) wire.DeviceID {
	h := fnv.New32a()
	h.Write([]byte(s))
	sum := h.Sum32()
	return wire.DeviceID(sum ^ sum>>8 ^ sum>>16 ^ sum>>24)
}

// DeviceIDFor mixes the link address into the machine based DeviceID.
// Addresses differing in one byte always give different IDs.
func DeviceIDFor(machineID string, addr link.HardwareAddr) wire.DeviceID {
	id := DeviceIDFrom(machineID)
	for _, b := range addr {
		id ^= wire.DeviceID(b)
	}
	return id
}
