package models

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/shelfhub/shelfclient/internal/codec"
)

// CborMarshaler encodes requests and fixtures with the shelf service's CBOR settings.
type CborMarshaler struct {
}

func (c CborMarshaler) Marshal(v any) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (c CborMarshaler) NewEncoder(w io.Writer) codec.Encoder {
	return getCborEncoder().NewEncoder(w)
}

type CborUnmarshaler struct {
}

func (c CborUnmarshaler) Unmarshal(data []byte, dst any) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (c CborUnmarshaler) NewDecoder(r io.Reader) codec.Decoder {
	return getCborDecoder().NewDecoder(r)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		BigIntConvert: cbor.BigIntConvertShortest,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		BigIntDec:      cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func getCborEncoder() cbor.EncMode {
	return encMode
}

func getCborDecoder() cbor.DecMode {
	return decMode
}
