package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Input is the raw transport-level view of an inbound request.
type Input struct {
	PathParams map[string]string
	Query      url.Values
	Body       []byte
}

// Request is the canonical, normalized form of an inbound request.
type Request struct {
	Operation  Operation
	PathParams map[string]string
	Query      map[string]string
	// Body is the outbound body for remote operations that carry one.
	Body json.RawMessage
}

// Param looks a parameter up in the path parameters, then the query parameters.
func (r *Request) Param(name string) (string, bool) {
	if v, ok := r.PathParams[name]; ok {
		return v, true
	}
	v, ok := r.Query[name]
	return v, ok
}

// Normalize builds the canonical Request for an operation. It keeps only the
// descriptor's accepted parameters, applies per-operation defaults and checks
// validation rules. Values are kept as the transport delivered them.
func Normalize(desc Descriptor, in Input) (*Request, error) {
	req := &Request{
		Operation:  desc.Operation,
		PathParams: make(map[string]string, len(desc.PathParams)),
		Query:      make(map[string]string, len(desc.QueryParams)),
	}

	for _, name := range desc.PathParams {
		if v, ok := in.PathParams[name]; ok {
			req.PathParams[name] = v
		}
	}

	for _, name := range desc.QueryParams {
		values, present := in.Query[name]
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		if value == "" {
			if def, ok := desc.Defaults[name]; ok {
				req.Query[name] = def
				continue
			}
		}
		if present {
			req.Query[name] = value
		}
	}

	if err := checkRules(desc, req); err != nil {
		return nil, err
	}

	if desc.Body == BodyQuestion {
		body, err := questionBody(in.Body)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}

	return req, nil
}

// checkRules validates parameters in declaration order so the first reported
// problem is stable.
func checkRules(desc Descriptor, req *Request) error {
	if len(desc.Rules) == 0 {
		return nil
	}
	names := make([]string, 0, len(desc.PathParams)+len(desc.QueryParams))
	names = append(names, desc.PathParams...)
	names = append(names, desc.QueryParams...)

	v := getValidator()
	for _, name := range names {
		rule, ok := desc.Rules[name]
		if !ok {
			continue
		}
		value, _ := req.Param(name)
		if err := v.Var(value, rule); err != nil {
			return NewValidationError(ruleMessage(name, err))
		}
	}
	return nil
}

func ruleMessage(name string, err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Sprintf("%s is invalid", name)
	}
	switch fe := fieldErrs[0]; fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "latitude":
		return fmt.Sprintf("%s must be a valid latitude", name)
	case "longitude":
		return fmt.Sprintf("%s must be a valid longitude", name)
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

type questionPayload struct {
	Question json.RawMessage `json:"question,omitempty"`
}

// questionBody extracts the question member verbatim. An absent body or member
// yields {} so the inference engine sees the same shape either way.
func questionBody(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage(`{}`), nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, NewValidationError("request body must be a JSON object")
	}

	body, err := json.Marshal(questionPayload{Question: members[ParamQuestion]})
	if err != nil {
		return nil, fmt.Errorf("encoding question body: %w", err)
	}
	return body, nil
}
