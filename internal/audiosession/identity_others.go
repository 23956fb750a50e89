//go:build !windows

package audiosession

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/process"
)

func imagePath(pid uint32) (string, error) {
	if pid > math.MaxInt32 {
		return "", errors.Newf("pid %d out of range", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Exe()
}
