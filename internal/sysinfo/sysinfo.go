/*
PURPOSE:
  Describes the machine that generates benchmark load: CPU count, total
  memory and whether an NVIDIA GPU is present. Collected once per run and
  stamped on every emitted trial so results from different hosts compare.

REQUIREMENTS:
  User-specified:
  - Record cpu_count, memory_gb and gpu_available with the run.

  Implementation-discovered:
  - Total memory comes from /proc/meminfo; other platforms report 0.
  - GPU detection shells out to nvidia-smi with a short timeout. A missing
    binary or a non-zero exit means no GPU.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/run.go
  - Produces: internal/model.SystemInfo

ERROR HANDLING:
  - Never fails. Unknown values are left at their zero value and logged at debug.

USAGE:
  info := sysinfo.Collect(ctx)

RELATED FILES:
  - internal/model/types.go
*/

package sysinfo

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/daryltucker/llamabench/internal/model"
	"github.com/daryltucker/llamabench/internal/output"
)

// GPUTimeout bounds the nvidia-smi call.
const GPUTimeout = 5 * time.Second

var (
	meminfoPath = "/proc/meminfo"
	nvidiaSMI   = "nvidia-smi"
)

// Collect gathers the host description.
func Collect(ctx context.Context) model.SystemInfo {
	info := model.SystemInfo{
		CPUCount: runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}

	if kb, err := memTotalKB(meminfoPath); err != nil {
		output.Logger.Debug("Total memory unknown", "error", err)
	} else {
		info.MemoryGB = math.Round(float64(kb)/(1024*1024)*10) / 10
	}

	if name, ok := detectNvidia(ctx); ok {
		info.GPUAvailable = true
		info.GPUName = name
	}
	return info
}

// memTotalKB reads the MemTotal line of a meminfo file.
func memTotalKB(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// MemTotal:       32594220 kB
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		return strconv.ParseInt(fields[1], 10, 64)
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("no MemTotal in %s", path)
}

func detectNvidia(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, GPUTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, nvidiaSMI, "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		output.Logger.Debug("No NVIDIA GPU detected", "error", err)
		return "", false
	}
	name, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(name), true
}
