// Package linac holds the treatment machine identity written into converted
// plans: for each collimator family, the DeviceSerialNumber and
// TreatmentMachineName of the linac carrying that collimator.
//
// The on-disk format is linac_config.json:
//
//	{
//	    "Millenium": {"DeviceSerialNumber": "5785", "TreatmentMachineName": "TrueBeam2"},
//	    "HD":        {"DeviceSerialNumber": "6119", "TreatmentMachineName": "TrueBeam3"}
//	}
package linac

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

// FileName is the conventional name of the linac configuration file.
const FileName = "linac_config.json"

// Machine identifies one treatment machine.
type Machine struct {
	DeviceSerialNumber   string `json:"DeviceSerialNumber" toml:"DeviceSerialNumber"`
	TreatmentMachineName string `json:"TreatmentMachineName" toml:"TreatmentMachineName"`
}

// Validate checks both fields against their DICOM value representations.
func (m Machine) Validate() error {
	if err := errs.ValidateSerialNumber(m.DeviceSerialNumber); err != nil {
		return err
	}
	return errs.ValidateMachineName(m.TreatmentMachineName)
}

// IsZero reports whether neither field is set.
func (m Machine) IsZero() bool {
	return m.DeviceSerialNumber == "" && m.TreatmentMachineName == ""
}

// Config maps each collimator family to its machine.
type Config struct {
	Millennium Machine `json:"Millenium" toml:"Millenium"`
	HD         Machine `json:"HD" toml:"HD"`
}

// Defaults returns the factory configuration.
func Defaults() Config {
	return Config{
		Millennium: Machine{DeviceSerialNumber: "5785", TreatmentMachineName: "TrueBeam2"},
		HD:         Machine{DeviceSerialNumber: "6119", TreatmentMachineName: "TrueBeam3"},
	}
}

// Machine returns the machine configured for f.
func (c Config) Machine(f mlc.Family) (Machine, error) {
	switch f {
	case mlc.Millennium:
		return c.Millennium, nil
	case mlc.HD:
		return c.HD, nil
	}
	return Machine{}, errs.New(errs.ErrCodeUnknownFamily, "collimator family %q not recognized, must be Millenium or HD", f.String())
}

// With returns a copy of c with the machine for f replaced.
func (c Config) With(f mlc.Family, m Machine) (Config, error) {
	switch f {
	case mlc.Millennium:
		c.Millennium = m
	case mlc.HD:
		c.HD = m
	default:
		return c, errs.New(errs.ErrCodeUnknownFamily, "collimator family %q not recognized, must be Millenium or HD", f.String())
	}
	return c, nil
}

// Validate checks every machine.
func (c Config) Validate() error {
	for _, f := range mlc.Families() {
		m, _ := c.Machine(f)
		if err := m.Validate(); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "linac %s", f.Key())
		}
	}
	return nil
}

// withDefaults fills families that are entirely missing from the defaults.
func (c Config) withDefaults() Config {
	d := Defaults()
	if c.Millennium.IsZero() {
		c.Millennium = d.Millennium
	}
	if c.HD.IsZero() {
		c.HD = d.HD
	}
	return c
}

// Parse decodes a linac configuration document.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse linac configuration")
	}
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Marshal encodes c in the linac_config.json layout.
func Marshal(c Config) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// LoadFile reads the configuration at path. When the file does not exist the
// defaults are returned and written to path; a failed write is not an error.
// The second return value reports whether the file was created.
func LoadFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Defaults()
		created := SaveFile(path, cfg) == nil
		return cfg, created, nil
	}
	if err != nil {
		return Config{}, false, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, false, nil
}

// SaveFile writes c to path atomically, creating parent directories.
func SaveFile(path string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".linac-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
