package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
)

// envelope is the {status: "success"|"error", ...} shape spec.md §6.1
// requires on every response.
type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, data envelope) {
	data["status"] = "success"
	writeJSON(w, http.StatusOK, data)
}

func writeError(w http.ResponseWriter, err error) {
	status := apierror.HTTPStatus(err)
	body := envelope{"status": "error", "message": err.Error()}
	if apiErr, ok := apierror.As(err); ok {
		body["code"] = string(apiErr.Kind)
		if apiErr.Details != nil {
			body["details"] = apiErr.Details
		}
	}
	writeJSON(w, status, body)
}

// normalizeFields rewrites every top-level key of a decoded JSON body to
// camelCase, so handlers only ever deal with one casing regardless of
// whether the caller sent snake_case or camelCase (spec.md §6.1's config
// subscription endpoints: "accepts either snake_case or camelCase").
func normalizeFields(body map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(body))
	for k, v := range body {
		out[strcase.ToLowerCamel(k)] = v
	}
	return out
}

func decodeBody(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return apierror.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// decodeBodyLoose decodes without rejecting unknown fields, for endpoints
// whose body shape is a free-form bag projected through normalizeFields
// (the config subscription endpoints).
func decodeBodyLoose(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apierror.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// idFromNormalized extracts a numeric "id" field from a normalized body
// map, accepting both JSON numbers and numeric strings.
func idFromNormalized(normalized map[string]interface{}) (uint, bool) {
	raw, ok := normalized["id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return uint(v), true
	case string:
		return idFromPath(v)
	default:
		return 0, false
	}
}

// idFromPath parses a path-segment id into a uint.
func idFromPath(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
