package admin

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Result is a classified admin response: either a success carrying the response
// object, or a failure carrying the server's messages.
type Result struct {
	ok       bool
	payload  map[string]any
	messages []string
	raw      any
}

// Classify treats raw as a success only when it is a JSON object whose status
// field is exactly "success". It never panics on unexpected shapes.
func Classify(raw any) Result {
	obj, isObj := raw.(map[string]any)
	status, _ := obj["status"].(string)
	if isObj && status == "success" {
		return Result{ok: true, payload: obj, raw: raw}
	}
	return Result{payload: obj, messages: messagesOf(raw), raw: raw}
}

// OK reports whether the response was a success.
func (r Result) OK() bool { return r.ok }

// Payload returns the response object; nil when the response was not an object.
func (r Result) Payload() map[string]any { return r.payload }

// Messages returns the server-reported failure messages.
func (r Result) Messages() []string { return r.messages }

// Raw returns the decoded response as received.
func (r Result) Raw() any { return r.raw }

// Err returns nil on success and a *BusinessError naming operation otherwise.
func (r Result) Err(operation string) error {
	if r.ok {
		return nil
	}
	return &BusinessError{Operation: operation, Messages: r.messages, Raw: r.raw}
}

// messagesOf collects human-readable failure text from the shapes ArcGIS Server
// uses: {"messages": [...]}, {"message": "..."} and {"error": {"message", "details"}}.
func messagesOf(raw any) []string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	var msgs []string
	if list, ok := obj["messages"].([]any); ok {
		for _, m := range list {
			if s, ok := scalarString(m); ok && s != "" {
				msgs = append(msgs, s)
			}
		}
	}
	if s, ok := obj["message"].(string); ok && s != "" {
		msgs = append(msgs, s)
	}
	if e, ok := obj["error"].(map[string]any); ok {
		if s, ok := e["message"].(string); ok && s != "" {
			msgs = append(msgs, s)
		}
		if details, ok := e["details"].([]any); ok {
			for _, d := range details {
				if s, ok := d.(string); ok && s != "" {
					msgs = append(msgs, s)
				}
			}
		}
	}
	return msgs
}

// responseObject accepts raw as the answer to a read operation: it must be an
// object and, if it carries a status, the status must be "success".
func responseObject(operation string, raw any) (map[string]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &BusinessError{Operation: operation, Messages: []string{"response is not a JSON object"}, Raw: raw}
	}
	if status, present := obj["status"]; present && status != "success" {
		return nil, &BusinessError{Operation: operation, Messages: messagesOf(raw), Raw: raw}
	}
	return obj, nil
}

func missingKey(operation, key string, raw any) error {
	return &BusinessError{
		Operation: operation,
		Messages:  []string{fmt.Sprintf("response missing %q", key)},
		Raw:       raw,
	}
}

// field reads obj[key] as T, failing with a BusinessError when absent or mistyped.
func field[T any](operation string, obj map[string]any, key string) (T, error) {
	v, ok := obj[key].(T)
	if !ok {
		var zero T
		return zero, missingKey(operation, key, obj)
	}
	return v, nil
}

// stringField reads a scalar field in its text form.
func stringField(operation string, obj map[string]any, key string) (string, error) {
	s, ok := scalarString(obj[key])
	if !ok {
		return "", missingKey(operation, key, obj)
	}
	return s, nil
}

// stringList reads an array of scalars; an empty array is valid.
func stringList(operation string, obj map[string]any, key string) ([]string, error) {
	list, err := field[[]any](operation, obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := scalarString(v)
		if !ok {
			return nil, &BusinessError{
				Operation: operation,
				Messages:  []string{fmt.Sprintf("%q contains a non-scalar entry", key)},
				Raw:       obj,
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// objectList reads an array of objects; an empty array is valid.
func objectList(operation string, obj map[string]any, key string) ([]map[string]any, error) {
	list, err := field[[]any](operation, obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, &BusinessError{
				Operation: operation,
				Messages:  []string{fmt.Sprintf("%q contains a non-object entry", key)},
				Raw:       obj,
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// scalarString renders strings, numbers and booleans as form-field text.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
