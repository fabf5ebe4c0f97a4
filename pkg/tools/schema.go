package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidArguments matches every argument decoding or validation failure
var ErrInvalidArguments = errors.New("invalid arguments")

// ArgumentsError describes why arguments were rejected
type ArgumentsError struct {
	Reason string
}

func (e *ArgumentsError) Error() string {
	return "invalid arguments: " + e.Reason
}

// Is reports whether target is ErrInvalidArguments
func (e *ArgumentsError) Is(target error) bool {
	return target == ErrInvalidArguments
}

var reflector = &jsonschema.Reflector{
	Anonymous:                 true,
	DoNotReference:            true,
	AllowAdditionalProperties: true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// SchemaFor reflects a JSON schema object from an argument struct
func SchemaFor(args interface{}) (map[string]interface{}, error) {
	s := reflector.Reflect(args)
	s.Version = ""

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}
	out["type"] = "object"
	return out, nil
}

// DecodeArguments decodes params into out, a pointer to an argument struct,
// and validates it. Failures are *ArgumentsError.
func DecodeArguments(params map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			return &ArgumentsError{Reason: strings.Join(merr.Errors, "; ")}
		}
		return &ArgumentsError{Reason: err.Error()}
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return &ArgumentsError{Reason: strings.Join(msgs, "; ")}
		}
		return &ArgumentsError{Reason: err.Error()}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s entries", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
