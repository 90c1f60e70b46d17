package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVars(t *testing.T, meminfo, smi string) {
	t.Helper()
	prevMem, prevSMI := meminfoPath, nvidiaSMI
	meminfoPath, nvidiaSMI = meminfo, smi
	t.Cleanup(func() { meminfoPath, nvidiaSMI = prevMem, prevSMI })
}

func writeFile(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestMemTotalKB(t *testing.T) {
	path := writeFile(t, "meminfo", "MemFree:         1000 kB\nMemTotal:       32594220 kB\n", 0o644)
	kb, err := memTotalKB(path)
	require.NoError(t, err)
	assert.EqualValues(t, 32594220, kb)

	_, err = memTotalKB(writeFile(t, "empty", "SwapTotal: 0 kB\n", 0o644))
	require.Error(t, err)

	_, err = memTotalKB(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestCollect_NoGPU(t *testing.T) {
	meminfo := writeFile(t, "meminfo", "MemTotal:       16777216 kB\n", 0o644)
	withVars(t, meminfo, filepath.Join(t.TempDir(), "no-such-binary"))

	info := Collect(context.Background())
	assert.Equal(t, runtime.NumCPU(), info.CPUCount)
	assert.Equal(t, 16.0, info.MemoryGB)
	assert.False(t, info.GPUAvailable)
	assert.Empty(t, info.GPUName)
	assert.Equal(t, runtime.GOOS, info.OS)
}

func TestCollect_UnknownMemory(t *testing.T) {
	withVars(t, filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "no-such-binary"))
	assert.Zero(t, Collect(context.Background()).MemoryGB)
}

func TestCollect_NvidiaGPU(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	smi := writeFile(t, "nvidia-smi", "#!/bin/sh\necho 'NVIDIA GeForce RTX 4090'\necho 'NVIDIA GeForce RTX 3090'\n", 0o755)
	withVars(t, writeFile(t, "meminfo", "MemTotal: 8388608 kB\n", 0o644), smi)

	info := Collect(context.Background())
	assert.True(t, info.GPUAvailable)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", info.GPUName)
	assert.Equal(t, 8.0, info.MemoryGB)
}

func TestCollect_FailingNvidiaSMI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	smi := writeFile(t, "nvidia-smi", "#!/bin/sh\necho 'NVIDIA-SMI has failed' >&2\nexit 9\n", 0o755)
	withVars(t, writeFile(t, "meminfo", "MemTotal: 8388608 kB\n", 0o644), smi)

	assert.False(t, Collect(context.Background()).GPUAvailable)
}
