package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// Envelope wraps machine-readable output so scripts can branch on success.
type Envelope struct {
	Success bool        `json:"success" yaml:"success"`
	Data    interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorBody is the machine-readable form of an error.
type ErrorBody struct {
	Code       string `json:"code" yaml:"code"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ErrorToBody converts err, mapping unstructured errors to INTERNAL.
func ErrorToBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}

	var e *errors.Error
	if stderrors.As(err, &e) {
		return &ErrorBody{
			Code:       e.Code,
			Message:    e.Short(),
			Suggestion: e.Suggestion,
		}
	}
	return &ErrorBody{Code: errors.ErrInternal, Message: err.Error()}
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// encoder writes a stream of envelopes: concatenated JSON values, or YAML
// documents separated by "---".
type encoder interface {
	Encode(v interface{}) error
	Close() error
}

type jsonEncoder struct{ *json.Encoder }

func (jsonEncoder) Close() error { return nil }

func newEncoder(w io.Writer, format string) (encoder, error) {
	switch format {
	case "", formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return jsonEncoder{enc}, nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc, nil
	default:
		return nil, errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Unknown output format '%s'", format),
			"Use --output json or --output yaml.")
	}
}
