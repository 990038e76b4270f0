// Package platform describes the modelled machine a boot stage runs on: its
// memory map, the reserved handoff region, and the images the stage loads.
package platform

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem"
	"github.com/sarchlab/bootchain/populate"
)

// Errors reported when validating a platform.
var (
	ErrNoImages       = errors.New("platform has no images")
	ErrOutOfDRAM      = errors.New("address range is outside of DRAM")
	ErrRegionOverlaps = errors.New("reserved region overlaps")
	ErrBadArg         = errors.New("invalid entry point argument")
	ErrBadCache       = errors.New("invalid cache geometry")
)

// CacheConfig is the geometry of the stage's data cache.
type CacheConfig struct {
	Log2BlockSize int    `yaml:"log2_block_size"`
	Ways          int    `yaml:"ways"`
	ByteSize      uint64 `yaml:"byte_size"`
}

// Image describes one loadable image of the stage.
type Image struct {
	// Name is a well-known image name (e.g. bl31) or a decimal id.
	Name string `yaml:"name"`

	Base        uint64 `yaml:"base"`
	Size        uint32 `yaml:"size"`
	MaxSize     uint32 `yaml:"max_size"`
	PC          uint64 `yaml:"pc"`
	SPSR        uint32 `yaml:"spsr"`
	Executable  bool   `yaml:"executable"`
	Secure      bool   `yaml:"secure"`
	SkipLoading bool   `yaml:"skip_loading"`

	// Args are entry point arguments, set by the populator after the
	// parameters are derived.
	Args map[int]ArgValue `yaml:"args,omitempty"`
}

// ArgValue is an entry point argument. It is either a number or the base
// address of another image, written as the image name.
type ArgValue struct {
	Value uint64
	Image string
}

// UnmarshalYAML accepts integers and image names.
func (a *ArgValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: not a scalar", node.Line, ErrBadArg)
	}

	if node.ShortTag() == "!!int" {
		return node.Decode(&a.Value)
	}

	a.Image = node.Value

	return nil
}

// MarshalYAML writes the image name or the number.
func (a ArgValue) MarshalYAML() (any, error) {
	if a.Image != "" {
		return a.Image, nil
	}

	return a.Value, nil
}

// Config is a platform.
type Config struct {
	Name string `yaml:"name"`

	// DRAMSize is the size of the physical address space backed by
	// storage, starting at address zero.
	DRAMSize uint64 `yaml:"dram_size"`

	// RegionBase and RegionSize place the reserved handoff region.
	RegionBase uint64 `yaml:"region_base"`
	RegionSize uint64 `yaml:"region_size"`

	// StageRWBase is where the stage keeps its own descriptor table.
	StageRWBase uint64 `yaml:"stage_rw_base"`

	// LinkExecutables chains the executable images in the listed order.
	// Without it the next stage runs the executable images in table order
	// as well, but the descriptors carry no handoff links.
	LinkExecutables bool `yaml:"link_executables"`

	Cache  CacheConfig `yaml:"cache"`
	Images []Image     `yaml:"images"`
}

// Load reads a platform from a YAML file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Config{Cache: defaultCache()}

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil {
		return nil, fmt.Errorf("platform %s: %w", path, err)
	}

	if c.Name == "" {
		c.Name = path
	}

	return c, nil
}

// Resolve returns the built-in platform called nameOrPath, or loads the
// platform file at nameOrPath.
func Resolve(nameOrPath string) (*Config, error) {
	if c, ok := Builtin(nameOrPath); ok {
		return c, nil
	}

	return Load(nameOrPath)
}

// Marshal returns the YAML form of the platform.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c CacheConfig) validate() error {
	if c.Log2BlockSize < 2 || c.Log2BlockSize > 12 || c.Ways <= 0 {
		return fmt.Errorf("%w: %d ways of 2^%dB lines",
			ErrBadCache, c.Ways, c.Log2BlockSize)
	}

	setSize := uint64(c.Ways) << c.Log2BlockSize
	if c.ByteSize < setSize || c.ByteSize%setSize != 0 {
		return fmt.Errorf("%w: %dB is not a multiple of %dB sets",
			ErrBadCache, c.ByteSize, setSize)
	}

	return nil
}

func defaultCache() CacheConfig {
	return CacheConfig{
		Log2BlockSize: 6,
		Ways:          4,
		ByteSize:      32 * mem.KB,
	}
}

// Layout returns the layout of the reserved region.
func (c *Config) Layout() handoff.Layout {
	return handoff.Layout{
		Base:           c.RegionBase,
		Size:           c.RegionSize,
		NumDescriptors: len(c.Images),
	}
}

// DescriptorTable builds the stage's descriptor table.
func (c *Config) DescriptorTable() (imgdesc.DescriptorTable, error) {
	table := make(imgdesc.DescriptorTable, 0, len(c.Images))

	for _, img := range c.Images {
		d, err := img.descriptor()
		if err != nil {
			return nil, err
		}

		table = append(table, d)
	}

	if c.LinkExecutables {
		table.LinkExecutables()
	}

	return table, nil
}

func (img Image) descriptor() (imgdesc.ImageDescriptor, error) {
	id, err := imgdesc.ParseImageID(img.Name)
	if err != nil {
		return imgdesc.ImageDescriptor{}, err
	}

	d := imgdesc.ImageDescriptor{
		ID:            id,
		NextHandoffID: imgdesc.InvalidImageID,
	}

	d.ImageInfo.Base = img.Base
	d.ImageInfo.Size = img.Size
	d.ImageInfo.MaxSize = img.MaxSize

	if img.SkipLoading {
		d.ImageInfo.Attr |= imgdesc.ImageAttrSkipLoading
	}

	d.EPInfo.PC = img.PC
	d.EPInfo.SPSR = img.SPSR

	if !img.Secure {
		d.EPInfo.Attr |= imgdesc.EPNonSecure
	}

	if img.Executable {
		d.EPInfo.Attr |= imgdesc.EPExecutable
	}

	return d, nil
}

// Populator returns the populator that writes the images' arguments into
// the parameters block.
func (c *Config) Populator() (*populate.ArgsPopulator, error) {
	p := populate.NewArgsPopulator()

	for _, img := range c.Images {
		id, err := imgdesc.ParseImageID(img.Name)
		if err != nil {
			return nil, err
		}

		for index, arg := range img.Args {
			if index < 0 || index >= imgdesc.NumEPArgs {
				return nil, fmt.Errorf("%w: %s arg%d",
					ErrBadArg, img.Name, index)
			}

			value, err := c.argValue(arg)
			if err != nil {
				return nil, fmt.Errorf("%s arg%d: %w", img.Name, index, err)
			}

			p.SetArg(id, index, value)
		}
	}

	return p, nil
}

func (c *Config) argValue(arg ArgValue) (uint64, error) {
	if arg.Image == "" {
		return arg.Value, nil
	}

	for _, img := range c.Images {
		if img.Name == arg.Image {
			return img.Base, nil
		}
	}

	return 0, fmt.Errorf("%w: no image named %s", ErrBadArg, arg.Image)
}

// Validate rejects platforms that cannot boot, most importantly platforms
// whose reserved region cannot hold the descriptor table and parameters
// block copies.
func (c *Config) Validate() error {
	if len(c.Images) == 0 {
		return ErrNoImages
	}

	if err := c.Cache.validate(); err != nil {
		return err
	}

	layout := c.Layout()
	if err := layout.Validate(); err != nil {
		return err
	}

	table, err := c.DescriptorTable()
	if err != nil {
		return err
	}

	if err := table.Validate(); err != nil {
		return err
	}

	if _, err := c.Populator(); err != nil {
		return err
	}

	return c.validateMemoryMap(layout, table)
}

func (c *Config) validateMemoryMap(
	layout handoff.Layout,
	table imgdesc.DescriptorTable,
) error {
	dram := mem.AddressRange{Start: 0, Size: c.DRAMSize}
	region := layout.Reserved()
	stageTable := mem.AddressRange{
		Start: c.StageRWBase,
		Size:  table.ByteSize(),
	}

	if !dram.Contains(region.Start, region.Size) {
		return fmt.Errorf("%w: reserved region at 0x%x+0x%x",
			ErrOutOfDRAM, region.Start, region.Size)
	}

	if !dram.Contains(stageTable.Start, stageTable.Size) {
		return fmt.Errorf("%w: descriptor table at 0x%x+0x%x",
			ErrOutOfDRAM, stageTable.Start, stageTable.Size)
	}

	if region.Overlaps(stageTable) {
		return fmt.Errorf("%w: the descriptor table at 0x%x",
			ErrRegionOverlaps, c.StageRWBase)
	}

	for _, img := range c.Images {
		area := mem.AddressRange{Start: img.Base, Size: uint64(img.MaxSize)}
		if region.Overlaps(area) {
			return fmt.Errorf("%w: %s at 0x%x+0x%x",
				ErrRegionOverlaps, img.Name, img.Base, img.MaxSize)
		}
	}

	return nil
}
