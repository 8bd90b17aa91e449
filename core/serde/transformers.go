package serde

import (
	"encoding/json"
	"errors"
	"reflect"

	"coordex/core/timespan"
)

// TimeSpanTransformerName is the registered name for TimeSpanTransformer
const TimeSpanTransformerName = "coordex.timespan"

// TimeSpanTransformer round-trips core/timespan.TimeSpan through its
// millisecond count
var TimeSpanTransformer = Transformer{
	Name: TimeSpanTransformerName,
	IsApplicable: func(v any) bool {
		_, ok := v.(timespan.TimeSpan)
		return ok
	},
	Serialize: func(v any) (any, error) {
		return v.(timespan.TimeSpan).Milliseconds(), nil
	},
	Deserialize: func(raw json.RawMessage) (any, error) {
		var ms int64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return nil, err
		}
		return timespan.FromMilliseconds(ms), nil
	},
}

// genericErrorTransformerName tags the degrade-path envelope produced for
// any error class without a registered Transformer
const genericErrorTransformerName = "coordex.error"

// GenericError reconstructs an error degraded to {name, message, cause} by
// serializeGenericError. It is what Deserialize produces for any wire error
// whose concrete type was never registered as a Transformer on this side.
type GenericError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

func (e *GenericError) Error() string {
	if e.Cause != "" {
		return e.Message + ": " + e.Cause
	}
	return e.Message
}

func (f *Flexible) serializeGenericError(err error) (Encoded, error) {
	ge := GenericError{Name: reflect.TypeOf(err).String(), Message: err.Error()}
	if u := errors.Unwrap(err); u != nil {
		ge.Cause = u.Error()
	}
	b, marshalErr := json.Marshal(envelope{Transformer: genericErrorTransformerName, Value: ge})
	if marshalErr != nil {
		return nil, &SerializationError{Transformer: genericErrorTransformerName, Cause: marshalErr}
	}
	return b, nil
}

// genericErrorTransformer lets Deserialize reconstruct a GenericError for
// any degraded error envelope; every Flexible registers it automatically
// so the degrade path always round-trips.
var genericErrorTransformer = Transformer{
	Name: genericErrorTransformerName,
	IsApplicable: func(v any) bool {
		_, ok := v.(*GenericError)
		return ok
	},
	Serialize: func(v any) (any, error) { return v.(*GenericError), nil },
	Deserialize: func(raw json.RawMessage) (any, error) {
		var ge GenericError
		if err := json.Unmarshal(raw, &ge); err != nil {
			return nil, err
		}
		return &ge, nil
	},
}
