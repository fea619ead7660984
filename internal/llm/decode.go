package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rotisserie/eris"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

var (
	numberInTextRe = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
	objectionType  = reflect.TypeOf(types.Objection{})
)

// Decode maps a normalized model response onto a typed record. Models return loosely typed
// values ("4.5 stars", a list where a string was asked for, "yes"), so conversion is lenient.
// On error out still holds every field that could be decoded.
func Decode(value map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(lenientHook),
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return eris.Wrap(err, "failed to build decoder")
	}
	if err := dec.Decode(value); err != nil {
		return eris.Wrap(err, "failed to decode model response")
	}
	return nil
}

// DecodeAs is the generic form of Decode.
func DecodeAs[T any](value map[string]any) (T, error) {
	var out T
	err := Decode(value, &out)
	return out, err
}

func lenientHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		if f, ok := toNumber(from, data); ok {
			return f, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := toNumber(from, data); ok {
			return int64(f), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f, ok := toNumber(from, data); ok {
			if f < 0 {
				return uint64(0), nil
			}
			return uint64(f), nil
		}
	case reflect.Bool:
		if from.Kind() == reflect.String {
			switch strings.ToLower(strings.TrimSpace(reflect.ValueOf(data).String())) {
			case "true", "yes", "y", "1":
				return true, nil
			default:
				return false, nil
			}
		}
	case reflect.String:
		switch from.Kind() {
		case reflect.Slice, reflect.Array:
			v := reflect.ValueOf(data)
			parts := make([]string, 0, v.Len())
			for i := 0; i < v.Len(); i++ {
				parts = append(parts, fmt.Sprint(v.Index(i).Interface()))
			}
			return strings.Join(parts, ", "), nil
		case reflect.Map:
			b, err := json.Marshal(data)
			if err != nil {
				return "", nil
			}
			return string(b), nil
		}
	case reflect.Slice:
		if from.Kind() == reflect.String {
			s := strings.TrimSpace(reflect.ValueOf(data).String())
			if s == "" {
				return []any{}, nil
			}
			return []any{s}, nil
		}
	case reflect.Struct:
		if to == objectionType && from.Kind() == reflect.String {
			return map[string]any{"objection": data}, nil
		}
		if from.Kind() != reflect.Map && from.Kind() != reflect.Struct {
			return map[string]any{}, nil
		}
	}
	return data, nil
}

// toNumber extracts a number from numeric values or from the first number in free text.
// Text without any digits becomes zero.
func toNumber(from reflect.Type, data any) (float64, bool) {
	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.String:
		m := numberInTextRe.FindString(v.String())
		if m == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			return 0, true
		}
		return f, true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
