package kernel

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/jamesainslie/tiercache/pkg/tiercache/hardware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSetter struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeSetter) Set(_ context.Context, name, value string) error {
	f.calls = append(f.calls, name+"="+value)
	if f.fail[name] {
		return errors.New("sysctl: permission denied")
	}
	return nil
}

type recorder struct {
	args [][]string
}

func (r *recorder) Run(_ context.Context, args ...string) (string, error) {
	r.args = append(r.args, args)
	return "", nil
}

func TestParameters(t *testing.T) {
	profile := hardware.Defaults()
	profile.BlockDevice = "/dev/nvme0n1"

	for _, goos := range []string{"darwin", "linux"} {
		t.Run(goos, func(t *testing.T) {
			params := Parameters(goos, profile)
			require.Len(t, params, 6)

			seen := make(map[string]bool)
			for _, p := range params {
				assert.NotEmpty(t, p.Name)
				assert.False(t, seen[p.Name], "duplicate %s", p.Name)
				seen[p.Name] = true

				_, err := strconv.Atoi(p.Value)
				assert.NoError(t, err, "%s value should be numeric", p.Name)
			}
		})
	}

	assert.Empty(t, Parameters("windows", profile))
}

func TestParameters_LinuxReadAhead(t *testing.T) {
	withDevice := Parameters("linux", hardware.Profile{CPUCores: 8, BlockDevice: "/dev/sda"})
	last := withDevice[len(withDevice)-1]
	assert.Equal(t, "readahead:/dev/sda", last.Name)
	assert.Equal(t, "6144", last.Value)

	for _, p := range withDevice {
		assert.NotEqual(t, "vm.page-cluster", p.Name)
	}

	withoutDevice := Parameters("linux", hardware.Profile{CPUCores: 8})
	assert.Len(t, withoutDevice, len(withDevice)-1)
	for _, p := range withoutDevice {
		assert.NotContains(t, p.Name, ReadAheadPrefix)
	}
}

func TestParameters_ScaleWithCores(t *testing.T) {
	small := Parameters("linux", hardware.Profile{CPUCores: 2})
	large := Parameters("linux", hardware.Profile{CPUCores: 32})

	smallMax, _ := strconv.Atoi(small[0].Value)
	largeMax, _ := strconv.Atoi(large[0].Value)
	assert.Equal(t, "fs.file-max", small[0].Name)
	assert.Greater(t, largeMax, smallMax)
}

func TestApply_AttemptsEveryParameter(t *testing.T) {
	params := Parameters("linux", hardware.Defaults())
	setter := &fakeSetter{fail: map[string]bool{"fs.nr_open": true, "vm.min_free_kbytes": true}}

	outcomes := Apply(context.Background(), setter, params)

	require.Len(t, outcomes, len(params))
	assert.Len(t, setter.calls, len(params), "each parameter is set exactly once")

	for i, o := range outcomes {
		assert.Equal(t, params[i], o.Parameter)
		assert.Equal(t, !setter.fail[o.Parameter.Name], o.Applied())
	}

	applied, failed := Count(outcomes)
	assert.Equal(t, len(params)-2, applied)
	assert.Equal(t, 2, failed)
}

func TestApply_Empty(t *testing.T) {
	assert.Empty(t, Apply(context.Background(), &fakeSetter{}, nil))
}

func TestSysctl_Set(t *testing.T) {
	rec := &recorder{}

	require.NoError(t, NewSysctl(rec).Set(context.Background(), "kern.maxfiles", "524288"))
	assert.Equal(t, [][]string{{"sysctl", "-w", "kern.maxfiles=524288"}}, rec.args)
}

func TestSysctl_SetReadAhead(t *testing.T) {
	rec := &recorder{}

	require.NoError(t, NewSysctl(rec).Set(context.Background(), ReadAheadPrefix+"/dev/nvme0n1", "8192"))
	assert.Equal(t, [][]string{{"blockdev", "--setra", "8192", "/dev/nvme0n1"}}, rec.args)
}
