package platform

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the memory map of a platform.
const (
	EnvRegionBase  = "BOOTCHAIN_REGION_BASE"
	EnvRegionSize  = "BOOTCHAIN_REGION_SIZE"
	EnvStageRWBase = "BOOTCHAIN_STAGE_RW_BASE"
	EnvDRAMSize    = "BOOTCHAIN_DRAM_SIZE"
)

// LoadEnv loads environment files into the process environment. Variables
// already set are kept. Without files, a .env file in the working directory
// is loaded if there is one.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}

	return godotenv.Load(files...)
}

// ApplyEnv overrides the memory map with the environment variables that are
// set. Values are decimal, or hexadecimal with a 0x prefix.
func (c *Config) ApplyEnv() error {
	overrides := []struct {
		name  string
		field *uint64
	}{
		{EnvRegionBase, &c.RegionBase},
		{EnvRegionSize, &c.RegionSize},
		{EnvStageRWBase, &c.StageRWBase},
		{EnvDRAMSize, &c.DRAMSize},
	}

	for _, o := range overrides {
		s, ok := os.LookupEnv(o.name)
		if !ok || s == "" {
			continue
		}

		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}

		*o.field = v
	}

	return nil
}
