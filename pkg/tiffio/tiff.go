// Package tiffio reads and writes labeled volumes as TIFF slice stacks
// (one image per z-slice, numerically ordered filenames) and as raw
// little-endian uint32 dumps for masks whose IDs do not fit in 16 bits.
// It is the raster I/O collaborator of the mask pipeline; the pipeline
// itself never touches files.
package tiffio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"brainmask3d/internal/models"
)

// ReadStack loads a volume from a directory of single-page TIFF files,
// one per z-slice. Files are ordered by the numeric part of their names
// so that slice_2.tiff sorts before slice_10.tiff; proper ordering keeps
// anatomically adjacent slices adjacent in the volume. All slices must
// share the same dimensions.
func ReadStack(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading slice directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".tif" || ext == ".tiff" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no TIFF slices found in %s", dir)
	}
	sort.Slice(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var vol *models.Volume
	for z, name := range files {
		img, err := readSlice(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("slice %s: %w", name, err)
		}
		bounds := img.Bounds()
		if vol == nil {
			vol = models.NewVolume(bounds.Dx(), bounds.Dy(), len(files))
		} else if bounds.Dx() != vol.Width || bounds.Dy() != vol.Height {
			return nil, fmt.Errorf("slice %s: dimensions %dx%d do not match %dx%d",
				name, bounds.Dx(), bounds.Dy(), vol.Width, vol.Height)
		}
		read := pixelReader(img)
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				vol.Set(x, y, z, read(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}
	return vol, nil
}

// WriteStack16 saves the volume as a directory of 16-bit grayscale TIFF
// slices named 000.tiff, 001.tiff, ... It fails if any voxel value
// exceeds the 16-bit range; run the ID remapper first.
func WriteStack16(dir string, v *models.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for z := 0; z < v.Depth; z++ {
		img := image.NewGray16(image.Rect(0, 0, v.Width, v.Height))
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				id := v.At(x, y, z)
				if id > 0xFFFF {
					return fmt.Errorf("voxel (%d,%d,%d) has ID %d exceeding the 16-bit range", x, y, z, id)
				}
				img.SetGray16(x, y, color.Gray16{Y: uint16(id)})
			}
		}
		if err := writeSlice(filepath.Join(dir, sliceName(z)), img); err != nil {
			return err
		}
	}
	return nil
}

// WriteStack8 saves the volume as a directory of 8-bit grayscale TIFF
// slices. Values are written as-is, so a binary mask comes out as 0/1
// exactly like the source pipeline's whole-brain artifact.
func WriteStack8(dir string, v *models.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for z := 0; z < v.Depth; z++ {
		img := image.NewGray(image.Rect(0, 0, v.Width, v.Height))
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				id := v.At(x, y, z)
				if id > 0xFF {
					return fmt.Errorf("voxel (%d,%d,%d) has ID %d exceeding the 8-bit range", x, y, z, id)
				}
				img.SetGray(x, y, color.Gray{Y: uint8(id)})
			}
		}
		if err := writeSlice(filepath.Join(dir, sliceName(z)), img); err != nil {
			return err
		}
	}
	return nil
}

func sliceName(z int) string {
	return fmt.Sprintf("%04d.tiff", z)
}

// pixelReader returns the raw stored value at a pixel. Grayscale images
// are read through their typed accessors: RGBA() scales 8-bit samples to
// the 16-bit range, which would turn a 0/1 binary mask into 0/257.
func pixelReader(img image.Image) func(x, y int) uint32 {
	switch im := img.(type) {
	case *image.Gray:
		return func(x, y int) uint32 { return uint32(im.GrayAt(x, y).Y) }
	case *image.Gray16:
		return func(x, y int) uint32 { return uint32(im.Gray16At(x, y).Y) }
	default:
		return func(x, y int) uint32 {
			r, _, _, _ := img.At(x, y).RGBA()
			return uint32(r)
		}
	}
}

func readSlice(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return tiff.Decode(file)
}

func writeSlice(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating slice file: %w", err)
	}
	defer file.Close()
	if err := tiff.Encode(file, img, nil); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// extractNumber extracts the numeric part from a filename for ordering.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil {
			return num
		}
	}
	return 0
}
