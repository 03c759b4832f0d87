package cascade

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// Loader applies a prioritized list of sources to a destination struct.
type Loader struct {
	sources []source // lowest priority first
}

// Providence records where a value came from.
type Providence struct {
	SourceType       string // ex: "default", "json_file", "env"
	SourceIdentifier string // ex: "/path/to/config.json"; "" for defaults and env
}

// IsSet reports whether any source set the value.
func (p Providence) IsSet() bool {
	return p.SourceType != ""
}

// Default reports whether the value came from WithDefaults.
func (p Providence) Default() bool {
	return p.SourceType == "default"
}

// String renders p for display (ex: "json_file /home/me/.nodediff/config.json").
func (p Providence) String() string {
	switch {
	case !p.IsSet():
		return "unset"
	case p.Default():
		return "default"
	case p.SourceIdentifier == "":
		return p.SourceType
	}
	return p.SourceType + " " + p.SourceIdentifier
}

var providenceType = reflect.TypeOf(Providence{})

// New returns an empty Loader. It is equivalent to &Loader{}.
func New() *Loader {
	return &Loader{}
}

// WithDefaults registers m as a source of default values. A nil map contributes nothing.
func (c *Loader) WithDefaults(m map[string]any) *Loader {
	c.sources = append(c.sources, defaultsSource{m: m})
	return c
}

// WithJSONFile registers the JSON file at path, expanded with ExpandPath. The file is read by StrictlyLoad.
func (c *Loader) WithJSONFile(path string) *Loader {
	c.sources = append(c.sources, jsonFileSource{path: ExpandPath(path)})
	return c
}

// WithNearestJSONFile searches upward from start (a directory or file; the working directory if "") for the first readable, non-blank file named fileName and registers it.
// fileName may contain directories (ex: ".nodediff/config.json"); it panics if fileName is absolute. If nothing is found the Loader is unchanged.
func (c *Loader) WithNearestJSONFile(fileName string, start string) *Loader {
	if filepath.IsAbs(fileName) {
		panic("fileName shouldn't be absolute")
	}
	if p := findNearest(fileName, start); p != "" {
		c.sources = append(c.sources, jsonFileSource{path: p})
	}
	return c
}

// WithEnv registers environment variables as a source. m maps a key to the variable that supplies it (ex: {"jobs": "NODEDIFF_JOBS"}).
func (c *Loader) WithEnv(m map[string]string) *Loader {
	c.sources = append(c.sources, envSource{keyToVar: m})
	return c
}

// StrictlyLoad applies every source to dest, a non-nil pointer to a struct, lowest priority first. Later sources overwrite earlier values.
func (c *Loader) StrictlyLoad(dest any) error {
	v := reflect.ValueOf(dest)
	if dest == nil || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a non-nil pointer to struct")
	}
	fields, err := indexFields(v.Elem())
	if err != nil {
		return err
	}

	for _, src := range c.sources {
		m, err := src.values()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				continue
			}
			return fmt.Errorf("%s: %w", src.name(), err)
		}
		prov := src.providence()
		for key, raw := range m {
			f, ok := fields[strings.ToLower(key)]
			if !ok {
				continue
			}
			if err := f.set(raw, prov); err != nil {
				return fmt.Errorf("%s: %s: %w", src.name(), strings.ToLower(key), err)
			}
		}
	}
	return nil
}

// field is one settable destination field and its optional Providence sibling.
type field struct {
	name string
	val  reflect.Value
	prov reflect.Value // invalid if the struct has no <Name>Providence field
}

func (f field) set(raw any, prov Providence) error {
	if raw == nil {
		return nil
	}
	if err := assign(f.val, raw); err != nil {
		return err
	}
	if f.prov.IsValid() {
		f.prov.Set(reflect.ValueOf(prov))
	}
	return nil
}

func indexFields(sv reflect.Value) (map[string]field, error) {
	st := sv.Type()
	fields := map[string]field{}
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sv.Field(i).CanSet() || sf.Type == providenceType {
			continue
		}
		key := fieldKey(sf)
		if key == "-" {
			continue
		}
		if prev, ok := fields[key]; ok {
			return nil, fmt.Errorf("struct has two fields for key %q (%s and %s)", key, prev.name, sf.Name)
		}
		f := field{name: sf.Name, val: sv.Field(i)}
		if ps, ok := st.FieldByName(sf.Name + "Providence"); ok && ps.Type == providenceType {
			f.prov = sv.FieldByIndex(ps.Index)
		}
		fields[key] = f
	}
	return fields, nil
}

// fieldKey returns the lowercased key for sf: its cascade tag name, else its json tag name, else its field name. "-" in a cascade tag skips the field; json:"-" does not.
func fieldKey(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get("cascade"), ","); strings.TrimSpace(name) != "" {
		return strings.ToLower(strings.TrimSpace(name))
	}
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return strings.ToLower(name)
	}
	return strings.ToLower(sf.Name)
}

func assign(dst reflect.Value, raw any) error {
	switch dst.Kind() {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			dst.SetString(v)
		case bool:
			dst.SetString(strconv.FormatBool(v))
		case float64:
			dst.SetString(strconv.FormatFloat(v, 'f', -1, 64))
		case int:
			dst.SetString(strconv.Itoa(v))
		default:
			return fmt.Errorf("cannot use %T as a string", raw)
		}
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			dst.SetBool(v)
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("cannot parse bool from %q", v)
			}
			dst.SetBool(b)
		default:
			return fmt.Errorf("cannot use %T as a bool", raw)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch v := raw.(type) {
		case int:
			n = int64(v)
		case float64:
			if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
				return fmt.Errorf("cannot use %v as an integer", v)
			}
			n = int64(v)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("cannot parse int from %q", v)
			}
			n = parsed
		default:
			return fmt.Errorf("cannot use %T as an integer", raw)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d is out of range", n)
		}
		dst.SetInt(n)
	default:
		return fmt.Errorf("unsupported field kind %s", dst.Kind())
	}
	return nil
}

// findNearest walks upward from start (a directory or file) and returns the first readable, non-blank file named fileName, or "".
func findNearest(fileName, start string) string {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		start = wd
	}
	if fi, err := os.Stat(start); err == nil && !fi.IsDir() {
		start = filepath.Dir(start)
	}

	for dir := start; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, fileName)
		if data, err := os.ReadFile(candidate); err == nil && strings.TrimSpace(string(data)) != "" {
			return candidate
		}
		if filepath.Dir(dir) == dir {
			return ""
		}
	}
}
