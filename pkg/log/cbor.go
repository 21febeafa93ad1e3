package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxPayloadFields bounds decoded arrays: a response line of at most 4096
// bytes cannot split into more fields than this.
const maxPayloadFields = 2048

// Capture encoding. Keys are sorted so identical sessions produce identical
// files; times keep nanoseconds so round trips survive a capture.
var (
	captureEnc = mustMode(cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		Time:          cbor.TimeRFC3339Nano,
		NilContainers: cbor.NilContainerAsNull,
		IndefLength:   cbor.IndefLengthForbidden,
	}.EncMode())

	captureDec = mustMode(cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxPayloadFields,
		MaxMapPairs:      64,
		IndefLength:      cbor.IndefLengthForbidden,
	}.DecMode())
)

func mustMode[M any](mode M, err error) M {
	if err != nil {
		panic("log: capture codec: " + err.Error())
	}
	return mode
}

// NewEncoder returns an encoder writing capture events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return captureEnc.NewEncoder(w)
}

// NewDecoder returns a decoder reading capture events from r. Events with
// duplicate keys or more than maxPayloadFields array elements are rejected.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return captureDec.NewDecoder(r)
}
