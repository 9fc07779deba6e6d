package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
)

// checkProcess makes sure the target process exists and logs what it is.
func checkProcess(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("process %d: %w", pid, err)
	}

	fields := []zap.Field{zap.Int("pid", pid)}

	if name, err := proc.Name(); err == nil {
		fields = append(fields, zap.String("name", name))
	}

	if mem, err := proc.MemoryInfo(); err == nil {
		fields = append(fields,
			zap.String("rss", humanize.IBytes(mem.RSS)),
			zap.String("vms", humanize.IBytes(mem.VMS)))
	}

	logger.Info("inspecting process", fields...)

	return nil
}
