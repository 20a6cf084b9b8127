//go:build !darwin && !linux

package hardware

import (
	"context"
	"fmt"
	"runtime"
)

// detect has no queries on this platform and returns an empty profile.
func (p *Prober) detect(context.Context) Profile {
	var profile Profile
	p.warn(&profile, "platform", fmt.Errorf("hardware detection not supported on %s", runtime.GOOS))
	return profile
}
