package cascade

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// source supplies key/value pairs to a Loader. Values are nil, string, bool, int or float64; JSON files may also yield other decoded JSON values, which fail coercion.
type source interface {
	name() string
	providence() Providence
	values() (map[string]any, error)
}

type defaultsSource struct {
	m map[string]any
}

func (s defaultsSource) name() string           { return "defaults" }
func (s defaultsSource) providence() Providence { return Providence{SourceType: "default"} }

func (s defaultsSource) values() (map[string]any, error) {
	return s.m, nil
}

// jsonFileSource reads a JSON object from path at load time. A blank file contributes nothing.
type jsonFileSource struct {
	path string
}

func (s jsonFileSource) name() string { return s.path }

func (s jsonFileSource) providence() Providence {
	return Providence{SourceType: "json_file", SourceIdentifier: s.path}
}

func (s jsonFileSource) values() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON must be an object")
	}
	return obj, nil
}

// envSource maps keys to environment variables.
type envSource struct {
	keyToVar map[string]string
}

func (s envSource) name() string           { return "env" }
func (s envSource) providence() Providence { return Providence{SourceType: "env"} }

// values skips unset and empty variables.
func (s envSource) values() (map[string]any, error) {
	out := map[string]any{}
	for key, envVar := range s.keyToVar {
		if envVar == "" {
			continue
		}
		if v, ok := os.LookupEnv(envVar); ok && v != "" {
			out[key] = v
		}
	}
	return out, nil
}
