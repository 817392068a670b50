package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// ParseJSONOrYAML is used in the same way as json.Unmarshal, but it also accepts YAML, which is
// converted to JSON before decoding. Fields that target does not have are an error, so that a
// misspelled key in a contract file is reported instead of being ignored.
func ParseJSONOrYAML(data []byte, target interface{}) error {
	jsonData := data
	if !json.Valid(data) {
		var rawStructure interface{}
		if err := yaml.Unmarshal(data, &rawStructure); err != nil {
			return err
		}
		normalized, err := yamlValueForJSON(rawStructure)
		if err != nil {
			return err
		}
		if jsonData, err = json.Marshal(normalized); err != nil {
			return err
		}
	}
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// yamlValueForJSON turns the map types that the YAML decoder may produce into string-keyed maps.
func yamlValueForJSON(value interface{}) (interface{}, error) {
	switch value := value.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(value))
		for _, v := range value {
			v1, err := yamlValueForJSON(v)
			if err != nil {
				return nil, err
			}
			out = append(out, v1)
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, v := range value {
			v1, err := yamlValueForJSON(v)
			if err != nil {
				return nil, err
			}
			out[k] = v1
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, v := range value {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("YAML map key %v is a %T; only string keys are allowed", k, k)
			}
			v1, err := yamlValueForJSON(v)
			if err != nil {
				return nil, err
			}
			out[key] = v1
		}
		return out, nil
	default:
		return value, nil
	}
}
