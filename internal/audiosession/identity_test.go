package audiosession

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveProcessName(t *testing.T) {
	r := NewProcessResolver()

	assert.Equal(t, SystemProcessName, r.Resolve(0))

	self := r.Resolve(uint32(os.Getpid()))
	assert.NotEmpty(t, self)
	assert.NotEqual(t, fallbackProcessName(uint32(os.Getpid())), self)

	assert.Equal(t, "Process 4294967295", r.Resolve(math.MaxUint32))

	for _, pid := range []uint32{1, 4, 4242, 65535, 1 << 30} {
		assert.NotEmpty(t, r.Resolve(pid))
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "Discord.exe", baseName(`C:\Users\me\AppData\Local\Discord\Discord.exe`))
	assert.Equal(t, "firefox", baseName("/usr/lib/firefox/firefox"))
	assert.Equal(t, "mixed.exe", baseName(`C:/tools\bin/mixed.exe`))
	assert.Equal(t, "plain", baseName("plain"))
	assert.Equal(t, "dir", baseName("/opt/dir/"))
	assert.Equal(t, "", baseName(""))
}

func TestResolverFunc(t *testing.T) {
	r := ProcessResolverFunc(func(pid uint32) string { return "fixed" })
	assert.Equal(t, "fixed", r.Resolve(7))
}
