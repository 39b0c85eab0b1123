package nip

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode and decMode are process-wide because they are immutable and
// constructing them on every call would otherwise be the hot path for
// every push and fetch.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("nip: building canonical CBOR encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Definite-length-only input is part of the canonical contract
		// (spec §4.2); reject indefinite-length items instead of silently
		// accepting a non-canonical peer's encoding.
		IndefLength: cbor.IndefLengthForbidden,
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("nip: building CBOR decoder: " + err.Error())
	}
}

// marshalCanonical serializes v as canonical CBOR: sorted map keys,
// definite-length items, byte-identical across invocations for the same
// value (spec §4.2, testable property 2).
func marshalCanonical(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshalCanonical(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
