package tiffio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"brainmask3d/internal/models"
)

// rawMagic marks a raw volume dump. The header is the magic followed by
// width, height and depth as little-endian uint32, then the voxel data
// in row-major order.
var rawMagic = [4]byte{'B', 'M', '3', 'D'}

// WriteRaw dumps the volume as little-endian uint32 voxels with a small
// dimension header. This format carries the full 32-bit ID range, which
// TIFF grayscale slices cannot, so it is the interchange format for
// masks whose atlas IDs overflow 16 bits.
func WriteRaw(path string, v *models.Volume) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating raw volume file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(rawMagic[:]); err != nil {
		return err
	}
	header := []uint32{uint32(v.Width), uint32(v.Height), uint32(v.Depth)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing raw header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, v.Data); err != nil {
		return fmt.Errorf("writing raw voxel data: %w", err)
	}
	return w.Flush()
}

// ReadRaw loads a volume previously written by WriteRaw.
func ReadRaw(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raw volume file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading raw header: %w", err)
	}
	if magic != rawMagic {
		return nil, fmt.Errorf("%s is not a raw volume file", path)
	}
	header := make([]uint32, 3)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("reading raw header: %w", err)
	}
	width, height, depth := int(header[0]), int(header[1]), int(header[2])
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("raw volume has invalid dimensions %dx%dx%d", width, height, depth)
	}

	vol := models.NewVolume(width, height, depth)
	if err := binary.Read(r, binary.LittleEndian, vol.Data); err != nil {
		return nil, fmt.Errorf("reading raw voxel data: %w", err)
	}
	return vol, nil
}
