package filters

import "fmt"

// RunLengthDecode expands PackBits style runs. A length byte below 128
// copies the next length+1 bytes, above 128 repeats the next byte 257-length
// times, and 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++

		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("runlength: literal run past end of data")
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("runlength: repeat run past end of data")
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
		if len(out) > MaxDecodedSize {
			return nil, ErrTooLarge
		}
	}
	return out, nil
}
