package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"winequality/ml"
)

// FieldError describes one rejected part of a request body. Loc is the path
// to the offending value, starting with "body".
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ValidationErrors collects every problem found in a request body.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		loc := make([]string, len(e.Loc))
		for j, l := range e.Loc {
			switch l := l.(type) {
			case string:
				loc[j] = l
			case int:
				loc[j] = strconv.Itoa(l)
			}
		}
		parts[i] = strings.Join(loc, ".") + ": " + e.Msg
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

const (
	msgMissing      = "Field required"
	msgNotNumber    = "Input should be a valid number"
	msgUnparsable   = "Input should be a valid number, unable to parse string as a number"
	msgNotFinite    = "Input should be a finite number"
	msgNotObject    = "Input should be a valid dictionary or object to extract fields from"
	msgInvalidJSON  = "JSON decode error"
	typeMissing     = "missing"
	typeFloat       = "float_type"
	typeFloatParse  = "float_parsing"
	typeFinite      = "finite_number"
	typeObject      = "model_attributes_type"
	typeInvalidJSON = "json_invalid"
)

// ParsePredictRequest decodes a JSON object carrying every wine feature.
// Numbers and numeric strings are accepted; null, booleans, objects, arrays,
// non-numeric strings and non-finite values are rejected. Unknown keys are
// ignored. All field problems are returned together as ValidationErrors.
func ParsePredictRequest(body []byte) (ml.WineFeatures, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ml.WineFeatures{}, ValidationErrors{{Loc: []any{"body"}, Msg: msgMissing, Type: typeMissing}}
	}

	var raw any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return ml.WineFeatures{}, invalidJSON(err)
	}
	if decoder.More() {
		return ml.WineFeatures{}, invalidJSON(errors.New("trailing data"))
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return ml.WineFeatures{}, ValidationErrors{{Loc: []any{"body"}, Msg: msgNotObject, Type: typeObject}}
	}

	names := ml.FeatureNames()
	vector := make([]float64, len(names))
	var errs ValidationErrors
	for i, name := range names {
		value, present := fields[name]
		if !present {
			errs = append(errs, FieldError{Loc: []any{"body", name}, Msg: msgMissing, Type: typeMissing})
			continue
		}
		v, fieldErr := coerceFloat(value)
		if fieldErr != nil {
			fieldErr.Loc = []any{"body", name}
			errs = append(errs, *fieldErr)
			continue
		}
		vector[i] = v
	}
	if len(errs) > 0 {
		return ml.WineFeatures{}, errs
	}
	return ml.FeatureFromVector(vector)
}

func coerceFloat(value any) (float64, *FieldError) {
	var (
		v   float64
		err error
	)
	switch value := value.(type) {
	case json.Number:
		v, err = strconv.ParseFloat(value.String(), 64)
		if err != nil {
			return 0, &FieldError{Msg: msgNotFinite, Type: typeFinite}
		}
	case string:
		v, err = strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return 0, &FieldError{Msg: msgNotFinite, Type: typeFinite}
			}
			return 0, &FieldError{Msg: msgUnparsable, Type: typeFloatParse}
		}
	default:
		return 0, &FieldError{Msg: msgNotNumber, Type: typeFloat}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FieldError{Msg: msgNotFinite, Type: typeFinite}
	}
	return v, nil
}

func invalidJSON(err error) ValidationErrors {
	offset := 0
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = int(syntaxErr.Offset)
	}
	return ValidationErrors{{Loc: []any{"body", offset}, Msg: msgInvalidJSON, Type: typeInvalidJSON}}
}
