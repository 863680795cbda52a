package linac

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	m, err := c.Machine(mlc.Millennium)
	require.NoError(t, err)
	assert.Equal(t, Machine{"5785", "TrueBeam2"}, m)

	h, err := c.Machine(mlc.HD)
	require.NoError(t, err)
	assert.Equal(t, Machine{"6119", "TrueBeam3"}, h)

	_, err = c.Machine(mlc.Unknown)
	assert.True(t, errs.Is(err, errs.ErrCodeUnknownFamily))
	assert.NoError(t, c.Validate())
}

func TestParseLegacyFile(t *testing.T) {
	data := []byte(`{
    "Millenium": {"DeviceSerialNumber": "1111", "TreatmentMachineName": "LinacA"},
    "HD": {"DeviceSerialNumber": "2222", "TreatmentMachineName": "LinacB"}
}`)
	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "LinacA", c.Millennium.TreatmentMachineName)
	assert.Equal(t, "2222", c.HD.DeviceSerialNumber)
}

func TestParseFillsMissingFamily(t *testing.T) {
	c, err := Parse([]byte(`{"HD": {"DeviceSerialNumber": "9", "TreatmentMachineName": "X"}}`))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Millennium, c.Millennium)
	assert.Equal(t, "X", c.HD.TreatmentMachineName)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidConfig))

	_, err = Parse([]byte(`{"HD": {"DeviceSerialNumber": "9", "TreatmentMachineName": ""}}`))
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidConfig))
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Defaults())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Millenium": {`)
	assert.Contains(t, string(data), `    "HD"`)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), back)
}

func TestLoadFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)

	c, created, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Defaults(), c)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, created, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c, again)
}

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := OpenStore(path)
	require.NoError(t, err)

	before := s.Snapshot()
	next, err := s.Update(mlc.HD, Machine{"7000", "TrueBeam9"})
	require.NoError(t, err)
	assert.Equal(t, "TrueBeam9", next.HD.TreatmentMachineName)

	// Earlier snapshots are unaffected.
	assert.Equal(t, "TrueBeam3", before.HD.TreatmentMachineName)

	reloaded, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, next, reloaded)
}

func TestStoreRejectsInvalidUpdate(t *testing.T) {
	s := NewStore(Defaults(), "")
	_, err := s.Update(mlc.Millennium, Machine{"", "X"})
	require.Error(t, err)
	assert.Equal(t, Defaults(), s.Snapshot())

	_, err = s.Update(mlc.Unknown, Machine{"1", "X"})
	assert.True(t, errs.Is(err, errs.ErrCodeUnknownFamily))

	err = s.Replace(Config{Millennium: Machine{"1", "A"}, HD: Machine{"2", "B"}})
	require.NoError(t, err)
	assert.Equal(t, "B", s.Snapshot().HD.TreatmentMachineName)
	assert.Equal(t, "", s.Path())
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(Defaults(), "")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Update(mlc.HD, Machine{"6119", "TrueBeam3"})
		}()
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			assert.NoError(t, snap.Validate())
		}()
	}
	wg.Wait()
}
