package dsm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagModelTransform  = 34264
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113

	geoKeyModelType  = 1024
	geoKeyRasterType = 1025

	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsPoint  = 2

	compressionNone     = 1
	compressionLZW      = 5
	compressionDeflate  = 8
	compressionDeflate2 = 32946

	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3

	predictorNone       = 1
	predictorHorizontal = 2
	predictorFloat      = 3

	// maxPixels bounds the raster and chunk allocations a header can request.
	maxPixels  = 1 << 27
	maxSamples = 16
)

// typeSize is the byte size of the TIFF field types used by GeoTIFF.
var typeSize = map[uint16]int{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

type ifdEntry struct {
	typ   uint16
	count uint32
	raw   []byte
}

type tiffFile struct {
	data    []byte
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

// Open reads the first image of a GeoTIFF file into memory.
func Open(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	g, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode parses a GeoTIFF held in memory. Only the first band of the first
// image is read.
func Decode(data []byte) (*Grid, error) {
	f, err := parseIFD(data)
	if err != nil {
		return nil, err
	}

	cols, rows := f.uint(tagImageWidth, 0), f.uint(tagImageLength, 0)
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupported)
	}
	if cols > maxPixels || rows > maxPixels || cols*rows > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d raster exceeds %d pixels", ErrUnsupported, cols, rows, maxPixels)
	}
	g := &Grid{Cols: int(cols), Rows: int(rows)}
	if err := f.georeference(g); err != nil {
		return nil, err
	}
	if nd, ok := f.ascii(tagGDALNoData); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(nd), 64); err == nil {
			g.HasNoData, g.NoData = true, v
		}
	}

	g.Values = make([]float64, g.Cols*g.Rows)
	if err := f.readPixels(g); err != nil {
		return nil, err
	}
	return g, nil
}

func parseIFD(data []byte) (*tiffFile, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: short header", ErrOpen)
	}
	f := &tiffFile{data: data, entries: make(map[uint16]ifdEntry)}
	switch string(data[:2]) {
	case "II":
		f.order = binary.LittleEndian
	case "MM":
		f.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: not a TIFF file", ErrOpen)
	}
	if magic := f.order.Uint16(data[2:4]); magic != 42 {
		return nil, fmt.Errorf("%w: TIFF version %d", ErrUnsupported, magic)
	}

	size := uint64(len(data))
	ifd := uint64(f.order.Uint32(data[4:8]))
	if ifd+2 > size {
		return nil, fmt.Errorf("%w: IFD offset out of range", ErrOpen)
	}
	n := int(f.order.Uint16(data[ifd : ifd+2]))
	off := int(ifd) + 2
	if uint64(off+12*n) > size {
		return nil, fmt.Errorf("%w: truncated IFD", ErrOpen)
	}
	for i := 0; i < n; i++ {
		e := data[off+12*i : off+12*i+12]
		tag := f.order.Uint16(e[0:2])
		typ := f.order.Uint16(e[2:4])
		count := f.order.Uint32(e[4:8])
		width, ok := typeSize[typ]
		if !ok {
			continue
		}
		length := uint64(width) * uint64(count)
		var raw []byte
		if length <= 4 {
			raw = e[8 : 8+length]
		} else {
			start := uint64(f.order.Uint32(e[8:12]))
			if length > size || start > size-length {
				return nil, fmt.Errorf("%w: tag %d out of range", ErrOpen, tag)
			}
			raw = data[start : start+length]
		}
		f.entries[tag] = ifdEntry{typ: typ, count: count, raw: raw}
	}
	return f, nil
}

// floats returns a numeric tag as float64 values.
func (f *tiffFile) floats(tag uint16) []float64 {
	e, ok := f.entries[tag]
	if !ok {
		return nil
	}
	out := make([]float64, e.count)
	for i := range out {
		switch e.typ {
		case 1, 7:
			out[i] = float64(e.raw[i])
		case 6:
			out[i] = float64(int8(e.raw[i]))
		case 3:
			out[i] = float64(f.order.Uint16(e.raw[2*i:]))
		case 8:
			out[i] = float64(int16(f.order.Uint16(e.raw[2*i:])))
		case 4:
			out[i] = float64(f.order.Uint32(e.raw[4*i:]))
		case 9:
			out[i] = float64(int32(f.order.Uint32(e.raw[4*i:])))
		case 5:
			num, den := f.order.Uint32(e.raw[8*i:]), f.order.Uint32(e.raw[8*i+4:])
			out[i] = float64(num) / float64(den)
		case 10:
			num, den := int32(f.order.Uint32(e.raw[8*i:])), int32(f.order.Uint32(e.raw[8*i+4:]))
			out[i] = float64(num) / float64(den)
		case 11:
			out[i] = float64(math.Float32frombits(f.order.Uint32(e.raw[4*i:])))
		case 12:
			out[i] = math.Float64frombits(f.order.Uint64(e.raw[8*i:]))
		}
	}
	return out
}

func (f *tiffFile) uint(tag uint16, def uint64) uint64 {
	v := f.floats(tag)
	if len(v) == 0 {
		return def
	}
	return uint64(v[0])
}

func (f *tiffFile) uints(tag uint16) []uint64 {
	v := f.floats(tag)
	out := make([]uint64, len(v))
	for i := range v {
		out[i] = uint64(v[i])
	}
	return out
}

func (f *tiffFile) ascii(tag uint16) (string, bool) {
	e, ok := f.entries[tag]
	if !ok || e.typ != 2 {
		return "", false
	}
	return strings.TrimRight(string(e.raw), "\x00"), true
}

func (f *tiffFile) geoKeys() map[uint16]uint16 {
	dir := f.uints(tagGeoKeyDirectory)
	keys := make(map[uint16]uint16)
	if len(dir) < 4 {
		return keys
	}
	n := int(dir[3])
	for i := 0; i < n && 4+4*i+3 < len(dir); i++ {
		k := dir[4+4*i : 8+4*i]
		// location 0 means the value is stored in place
		if k[1] == 0 {
			keys[uint16(k[0])] = uint16(k[3])
		}
	}
	return keys
}

func (f *tiffFile) georeference(g *Grid) error {
	keys := f.geoKeys()
	model, hasModel := keys[geoKeyModelType]
	if hasModel && model != modelTypeGeographic {
		if model == modelTypeProjected {
			return ErrProjectedCRS
		}
		return fmt.Errorf("%w: model type %d", ErrUnsupported, model)
	}

	scale := f.floats(tagModelPixelScale)
	tie := f.floats(tagModelTiepoint)
	switch {
	case len(scale) >= 2 && len(tie) >= 6:
		g.PixelWidth, g.PixelHeight = scale[0], scale[1]
		g.OriginLon = tie[3] - tie[0]*scale[0]
		g.OriginLat = tie[4] + tie[1]*scale[1]
	case len(f.floats(tagModelTransform)) >= 8:
		m := f.floats(tagModelTransform)
		if m[1] != 0 || m[4] != 0 {
			return fmt.Errorf("%w: rotated raster", ErrUnsupported)
		}
		g.PixelWidth, g.PixelHeight = m[0], -m[5]
		g.OriginLon, g.OriginLat = m[3], m[7]
	default:
		return fmt.Errorf("%w: no georeference", ErrUnsupported)
	}
	if g.PixelWidth <= 0 || g.PixelHeight <= 0 {
		return fmt.Errorf("%w: raster is not north-up", ErrUnsupported)
	}

	if keys[geoKeyRasterType] == rasterPixelIsPoint {
		g.OriginLon -= g.PixelWidth / 2
		g.OriginLat += g.PixelHeight / 2
	}
	if !hasModel && (math.Abs(g.OriginLon) > 360 || math.Abs(g.OriginLat) > 90) {
		return ErrProjectedCRS
	}
	return nil
}

type layout struct {
	bits      int
	format    int
	spp       int
	planar    bool
	predictor int
	chunkW    int
	chunkH    int
	across    int
	offsets   []uint64
	counts    []uint64
	compress  int
}

func (f *tiffFile) layout(g *Grid) (layout, error) {
	l := layout{
		bits:      int(f.uint(tagBitsPerSample, 1)),
		format:    int(f.uint(tagSampleFormat, sampleUint)),
		spp:       int(f.uint(tagSamplesPerPixel, 1)),
		planar:    f.uint(tagPlanarConfig, 1) == 2,
		predictor: int(f.uint(tagPredictor, 1)),
		compress:  int(f.uint(tagCompression, compressionNone)),
	}
	switch l.bits {
	case 8, 16, 32, 64:
	default:
		return l, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, l.bits)
	}
	if l.format == sampleFloat && l.bits < 32 {
		return l, fmt.Errorf("%w: %d bit float", ErrUnsupported, l.bits)
	}
	switch l.predictor {
	case predictorNone, predictorHorizontal:
	case predictorFloat:
		if l.format != sampleFloat {
			return l, fmt.Errorf("%w: floating point predictor on integer samples", ErrUnsupported)
		}
	default:
		return l, fmt.Errorf("%w: predictor %d", ErrUnsupported, l.predictor)
	}
	if l.spp < 1 || l.spp > maxSamples {
		return l, fmt.Errorf("%w: %d samples per pixel", ErrUnsupported, l.spp)
	}
	if l.planar {
		// only the first plane is read
		l.spp = 1
	}

	if _, tiled := f.entries[tagTileOffsets]; tiled {
		l.chunkW = int(f.uint(tagTileWidth, 0))
		l.chunkH = int(f.uint(tagTileLength, 0))
		l.offsets = f.uints(tagTileOffsets)
		l.counts = f.uints(tagTileByteCounts)
	} else {
		l.chunkW = g.Cols
		l.chunkH = int(f.uint(tagRowsPerStrip, uint64(g.Rows)))
		if l.chunkH > g.Rows {
			l.chunkH = g.Rows
		}
		l.offsets = f.uints(tagStripOffsets)
		l.counts = f.uints(tagStripByteCounts)
	}
	if l.chunkW <= 0 || l.chunkH <= 0 || l.chunkW > maxPixels || l.chunkH > maxPixels ||
		uint64(l.chunkW)*uint64(l.chunkH)*uint64(l.spp) > maxPixels {
		return l, fmt.Errorf("%w: invalid chunk size %dx%d", ErrUnsupported, l.chunkW, l.chunkH)
	}
	l.across = (g.Cols + l.chunkW - 1) / l.chunkW
	down := (g.Rows + l.chunkH - 1) / l.chunkH
	if len(l.offsets) < l.across*down || len(l.counts) < l.across*down {
		return l, fmt.Errorf("%w: missing strip or tile offsets", ErrOpen)
	}
	return l, nil
}

func (f *tiffFile) readPixels(g *Grid) error {
	l, err := f.layout(g)
	if err != nil {
		return err
	}
	down := (g.Rows + l.chunkH - 1) / l.chunkH
	bps := l.bits / 8
	mask := uint64(math.MaxUint64)
	if l.bits < 64 {
		mask = 1<<uint(l.bits) - 1
	}

	rowSamples := l.chunkW * l.spp
	rowBytes := rowSamples * bps
	samples := make([]uint64, rowSamples*l.chunkH)
	for cy := 0; cy < down; cy++ {
		for cx := 0; cx < l.across; cx++ {
			i := cy*l.across + cx
			start, n := l.offsets[i], l.counts[i]
			if start > uint64(len(f.data)) || n > uint64(len(f.data))-start {
				return fmt.Errorf("%w: chunk %d out of range", ErrOpen, i)
			}
			raw, err := decompress(l.compress, f.data[start:start+n], rowBytes*l.chunkH)
			if err != nil {
				return err
			}

			rows := min(l.chunkH, len(raw)/rowBytes)
			for r := 0; r < rows; r++ {
				row := raw[r*rowBytes : (r+1)*rowBytes]
				dst := samples[r*rowSamples : (r+1)*rowSamples]
				if l.predictor == predictorFloat {
					unpredictFloat(row, dst, l.spp, bps)
					continue
				}
				for k := range dst {
					dst[k] = f.sample(row[k*bps:], bps)
				}
				if l.predictor == predictorHorizontal {
					for k := l.spp; k < len(dst); k++ {
						dst[k] = (dst[k] + dst[k-l.spp]) & mask
					}
				}
			}

			for r := 0; r < rows; r++ {
				y := cy*l.chunkH + r
				if y >= g.Rows {
					break
				}
				for c := 0; c < l.chunkW; c++ {
					x := cx*l.chunkW + c
					if x >= g.Cols {
						break
					}
					g.Values[y*g.Cols+x] = toFloat(samples[r*rowSamples+c*l.spp], l.bits, l.format)
				}
			}
		}
	}
	return nil
}

// unpredictFloat reverses the floating point predictor on one row: byte wise
// differencing with a stride of one pixel, over byte planes stored most
// significant first whatever the file byte order.
func unpredictFloat(row []byte, dst []uint64, spp, bps int) {
	acc := slices.Clone(row)
	for i := spp; i < len(acc); i++ {
		acc[i] += acc[i-spp]
	}
	for k := range dst {
		var v uint64
		for b := 0; b < bps; b++ {
			v = v<<8 | uint64(acc[b*len(dst)+k])
		}
		dst[k] = v
	}
}

func (f *tiffFile) sample(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(f.order.Uint16(b))
	case 4:
		return uint64(f.order.Uint32(b))
	default:
		return f.order.Uint64(b)
	}
}

func toFloat(v uint64, bits, format int) float64 {
	switch format {
	case sampleFloat:
		if bits == 32 {
			return float64(math.Float32frombits(uint32(v)))
		}
		return math.Float64frombits(v)
	case sampleInt:
		shift := 64 - uint(bits)
		return float64(int64(v<<shift) >> shift)
	default:
		return float64(v)
	}
}

// decompress inflates chunk, reading at most want bytes.
func decompress(method int, chunk []byte, want int) ([]byte, error) {
	var r io.ReadCloser
	switch method {
	case compressionNone:
		return chunk, nil
	case compressionLZW:
		r = lzw.NewReader(bytes.NewReader(chunk), lzw.MSB, 8)
	case compressionDeflate, compressionDeflate2:
		zr, err := zlib.NewReader(bytes.NewReader(chunk))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		r = zr
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, method)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(want)))
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return out, nil
}
