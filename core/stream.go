package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/lazypdf/internal/filters"
)

// ErrUnsupportedFilter is returned for filters that are recognised but not decoded
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Decode applies the stream's filter chain. Image filters pass the data
// through untouched.
func (s *Stream) Decode() ([]byte, error) {
	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}
	if len(names) == 1 {
		return decodeWithFilter(s.Data, names[0], params[0])
	}

	data := s.Data
	for i, name := range names {
		if data, err = decodeWithFilter(data, name, params[i]); err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	return data, nil
}

// filterChain pairs each /Filter name with its /DecodeParms. A single
// parameter dictionary applies to every filter.
func (s *Stream) filterChain() ([]string, []Dict, error) {
	var filterList Array
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return nil, nil, nil
	case Name:
		filterList = Array{f}
	case Array:
		filterList = f
	default:
		return nil, nil, fmt.Errorf("invalid Filter type: %T", f)
	}

	paramsObj := s.Dict.Get("DecodeParms")
	paramList, perFilter := paramsObj.(Array)

	names := make([]string, len(filterList))
	params := make([]Dict, len(filterList))
	for i, f := range filterList {
		name, ok := f.(Name)
		if !ok {
			return nil, nil, fmt.Errorf("filter %d is not a name: %T", i, f)
		}
		names[i] = string(name)
		if perFilter {
			params[i] = paramsObjToDict(paramList.Get(i))
		} else {
			params[i] = paramsObjToDict(paramsObj)
		}
	}
	return names, params, nil
}

// decodeWithFilter applies a single filter by its full or abbreviated name
func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, decodeParams(params))

	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)

	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)

	case "RunLengthDecode", "RL":
		return filters.RunLengthDecode(data)

	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil

	case "LZWDecode", "LZW", "CCITTFaxDecode", "CCF", "JBIG2Decode", "Crypt":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filterName)

	default:
		return nil, fmt.Errorf("unknown filter: %s", filterName)
	}
}

// paramsObjToDict returns obj as a Dict, or nil when it is anything else
func paramsObjToDict(obj Object) Dict {
	dict, _ := obj.(Dict)
	return dict
}

func decodeParams(dict Dict) filters.Params {
	intParam := func(key string) int {
		if n, ok := dict[key].(Int); ok {
			return int(n)
		}
		return 0
	}
	return filters.Params{
		Predictor:        intParam("Predictor"),
		Colors:           intParam("Colors"),
		BitsPerComponent: intParam("BitsPerComponent"),
		Columns:          intParam("Columns"),
	}
}
