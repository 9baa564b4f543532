package store

import (
	"github.com/mitchellh/mapstructure"

	"oss.nandlabs.io/execctl/model"
)

// decodePartial decodes an opaque partial-update map (as handed to
// updateJob/updateExecution by the transport layer) into a typed patch
// struct. mapstructure populates only the pointer/slice fields present in
// raw and allocates pointers for them, so ApplyPatch can tell "supplied" from
// "absent" without a hand-written type switch over the map.
func decodePartial[T any](raw map[string]interface{}) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeJobPatch decodes a caller-supplied partial-update map (as accepted
// by updateJob at the transport boundary) into a model.JobPatch.
func DecodeJobPatch(raw map[string]interface{}) (model.JobPatch, error) {
	return decodePartial[model.JobPatch](raw)
}

// DecodeExecutionPatch decodes a caller-supplied partial-update map (as
// accepted by updateExecution at the transport boundary) into a
// model.ExecutionPatch.
func DecodeExecutionPatch(raw map[string]interface{}) (model.ExecutionPatch, error) {
	return decodePartial[model.ExecutionPatch](raw)
}
