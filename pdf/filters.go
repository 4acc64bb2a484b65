package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Decode returns the stream's plain bytes. Only FlateDecode (with optional
// PNG predictors) is handled; that covers cross-reference and object streams,
// which are the only streams this package ever needs to read.
func (s *Stream) Decode(resolve func(Object) Object) ([]byte, error) {
	filter := resolve(s.Dict["Filter"])
	switch f := filter.(type) {
	case nil, Null:
		return s.Data, nil
	case Name:
		return decodeFilter(f, s.Data, asDict(resolve(s.Dict["DecodeParms"])), resolve)
	case Array:
		data := s.Data
		parms, _ := resolve(s.Dict["DecodeParms"]).(Array)
		for i, item := range f {
			name, ok := resolve(item).(Name)
			if !ok {
				return nil, fmt.Errorf("non-name filter entry %v", item)
			}
			var p Dict
			if i < len(parms) {
				p = asDict(resolve(parms[i]))
			}
			var err error
			data, err = decodeFilter(name, data, p, resolve)
			if err != nil {
				return nil, err
			}
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter object %T", filter)
	}
}

func asDict(obj Object) Dict {
	d, _ := obj.(Dict)
	return d
}

func decodeFilter(name Name, data []byte, parms Dict, resolve func(Object) Object) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		defer r.Close()
		plain, err := io.ReadAll(r)
		if err != nil && len(plain) == 0 {
			return nil, fmt.Errorf("flate: %w", err)
		}
		return applyPredictor(plain, parms, resolve)
	default:
		return nil, fmt.Errorf("unsupported filter /%s", name)
	}
}

// applyPredictor undoes PNG row prediction (predictor >= 10) as used by
// cross-reference streams.
func applyPredictor(data []byte, parms Dict, resolve func(Object) Object) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	pred := int64(1)
	if v, ok := numeric(resolve(parms["Predictor"])); ok {
		pred = int64(v)
	}
	if pred <= 1 {
		return data, nil
	}
	if pred < 10 {
		return nil, fmt.Errorf("unsupported TIFF predictor %d", pred)
	}
	columns := int64(1)
	if v, ok := numeric(resolve(parms["Columns"])); ok {
		columns = int64(v)
	}
	colors := int64(1)
	if v, ok := numeric(resolve(parms["Colors"])); ok {
		colors = int64(v)
	}
	bpc := int64(8)
	if v, ok := numeric(resolve(parms["BitsPerComponent"])); ok {
		bpc = int64(v)
	}
	bytesPerPixel := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor columns %d", columns)
	}

	var out []byte
	prev := make([]byte, rowLen)
	for off := 0; off+1 <= len(data); off += rowLen + 1 {
		tag := data[off]
		end := off + 1 + rowLen
		if end > len(data) {
			end = len(data)
		}
		row := append([]byte(nil), data[off+1:end]...)
		switch tag {
		case 0:
		case 1: // Sub
			for i := bytesPerPixel; i < len(row); i++ {
				row[i] += row[i-bytesPerPixel]
			}
		case 2: // Up
			for i := range row {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := range row {
				var left byte
				if i >= bytesPerPixel {
					left = row[i-bytesPerPixel]
				}
				row[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range row {
				var left, upLeft byte
				if i >= bytesPerPixel {
					left = row[i-bytesPerPixel]
					upLeft = prev[i-bytesPerPixel]
				}
				row[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG predictor tag %d", tag)
		}
		out = append(out, row...)
		copy(prev, row)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// flateCompress is used when serializing new image and content streams.
func flateCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
