package tilemap

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeRLE encodes tile ids into base64(varint pairs) of (tile_id, run_len).
func EncodeRLE(ids []int) (string, error) {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		id := ids[i]
		if id < 0 {
			return "", fmt.Errorf("negative tile id %d at %d", id, i)
		}
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == id; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(id))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeRLE reverses EncodeRLE. limit caps the decoded length.
func DecodeRLE(b64 string, limit int) ([]int, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []int
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		if id > math.MaxInt32 {
			return nil, fmt.Errorf("tile id %d out of range at %d", id, i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if run == 0 || uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run of %d exceeds %d cells", run, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, int(id))
		}
	}
	return out, nil
}
