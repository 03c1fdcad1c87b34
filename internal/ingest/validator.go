package ingest

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tracewell-io/tracewell/internal/errs"
	"github.com/tracewell-io/tracewell/internal/validation"
)

// decodeStrict unmarshals data into v, rejecting unrecognized fields so a
// malformed envelope fails validation instead of silently dropping data.
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// validateEnvelopeData decodes and validates data for envelope type typ,
// returning the decoded payload and its queue-ready JSON re-encoding.
func validateEnvelopeData(typ string, data []byte) (interface{}, []byte, error) {
	switch typ {
	case "decision":
		var req decisionEventRequest
		if err := decodeAndValidate(data, &req); err != nil {
			return nil, nil, err
		}
		encoded, err := json.Marshal(req)
		return req, encoded, err
	case "run":
		var req runRequest
		if err := decodeAndValidate(data, &req); err != nil {
			return nil, nil, err
		}
		encoded, err := json.Marshal(req)
		return req, encoded, err
	case "step":
		var req stepRequest
		if err := decodeAndValidate(data, &req); err != nil {
			return nil, nil, err
		}
		encoded, err := json.Marshal(req)
		return req, encoded, err
	default:
		return nil, nil, errs.NewPermanent(fmt.Sprintf("unknown envelope type %q", typ), nil, errs.CategoryValidation)
	}
}

func decodeAndValidate(data []byte, v interface{}) error {
	if err := decodeStrict(data, v); err != nil {
		return errs.NewPermanent("malformed payload", err, errs.CategoryValidation)
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		return errs.NewPermanent(apiErr.Message, verr, errs.CategoryValidation)
	}
	return nil
}
