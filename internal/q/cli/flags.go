package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// value is the typed storage behind one flag.
type value interface {
	set(raw string) error
	typeName() string // "" for bool flags, which take no argument
}

type boolValue struct{ p *bool }

func (v boolValue) set(raw string) error {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	*v.p = b
	return nil
}

func (boolValue) typeName() string { return "" }

type stringValue struct{ p *string }

func (v stringValue) set(raw string) error {
	*v.p = raw
	return nil
}

func (stringValue) typeName() string { return "string" }

type intValue struct{ p *int }

func (v intValue) set(raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*v.p = n
	return nil
}

func (intValue) typeName() string { return "int" }

type flag struct {
	name      string
	shorthand rune
	usage     string
	value     value
}

func (f *flag) display() string {
	if f.shorthand != 0 {
		return fmt.Sprintf("-%c/--%s", f.shorthand, f.name)
	}
	return "--" + f.name
}

// FlagSet is the set of flags registered on a command.
type FlagSet struct {
	byName  map[string]*flag
	byShort map[rune]*flag
}

func newFlagSet() *FlagSet {
	return &FlagSet{byName: map[string]*flag{}, byShort: map[rune]*flag{}}
}

// Bool registers a boolean flag. shorthand may be 0.
func (fs *FlagSet) Bool(name string, shorthand rune, def bool, usage string) *bool {
	p := &def
	fs.add(name, shorthand, usage, boolValue{p})
	return p
}

// String registers a string flag. shorthand may be 0.
func (fs *FlagSet) String(name string, shorthand rune, def string, usage string) *string {
	p := &def
	fs.add(name, shorthand, usage, stringValue{p})
	return p
}

// Int registers an int flag. shorthand may be 0.
func (fs *FlagSet) Int(name string, shorthand rune, def int, usage string) *int {
	p := &def
	fs.add(name, shorthand, usage, intValue{p})
	return p
}

func (fs *FlagSet) add(name string, shorthand rune, usage string, v value) {
	if name == "" {
		panic("cli: flag name must be non-empty")
	}
	if _, dup := fs.byName[name]; dup {
		panic("cli: duplicate flag: --" + name)
	}
	f := &flag{name: name, shorthand: shorthand, usage: usage, value: v}
	fs.byName[name] = f
	if shorthand != 0 {
		if _, dup := fs.byShort[shorthand]; dup {
			panic(fmt.Sprintf("cli: duplicate shorthand flag: -%c", shorthand))
		}
		fs.byShort[shorthand] = f
	}
}

// visibleFlags merges the persistent flags of c's lineage with c's local flags.
func (c *Command) visibleFlags() *FlagSet {
	all := newFlagSet()
	merge := func(fs *FlagSet) {
		if fs == nil {
			return
		}
		for _, f := range fs.byName {
			if prev, ok := all.byName[f.name]; ok && prev != f {
				panic("cli: flag name conflict across command path: --" + f.name)
			}
			all.byName[f.name] = f
			if f.shorthand != 0 {
				if prev, ok := all.byShort[f.shorthand]; ok && prev != f {
					panic(fmt.Sprintf("cli: shorthand conflict across command path: -%c", f.shorthand))
				}
				all.byShort[f.shorthand] = f
			}
		}
	}
	for _, cmd := range c.lineage() {
		merge(cmd.persistent)
	}
	merge(c.local)
	return all
}

func (fs *FlagSet) sorted() []*flag {
	out := make([]*flag, 0, len(fs.byName))
	for _, f := range fs.byName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// parseFlag consumes the flag token argv[0] (and possibly its value in argv[1]) and returns how many extra tokens were consumed.
func (fs *FlagSet) parseFlag(argv []string) (int, error) {
	token := argv[0]

	var f *flag
	var inline *string
	switch {
	case len(token) > 2 && token[:2] == "--":
		name, val, ok := strings.Cut(token[2:], "=")
		f = fs.byName[name]
		if ok {
			inline = &val
		}
	case len(token) == 2 || token[2] == '=':
		// -x or -x=value
		f = fs.byShort[rune(token[1])]
		if len(token) > 2 {
			v := token[3:]
			inline = &v
		}
	default:
		// single-dash long form: -name or -name=value
		name, val, ok := strings.Cut(token[1:], "=")
		f = fs.byName[name]
		if ok {
			inline = &val
		}
	}
	if f == nil {
		return 0, usageErrorf("unknown flag: %s", token)
	}

	raw, consumed := "", 0
	switch {
	case inline != nil:
		raw = *inline
	case f.value.typeName() == "":
		raw = "true"
		if len(argv) > 1 {
			if _, err := strconv.ParseBool(argv[1]); err == nil {
				raw, consumed = argv[1], 1
			}
		}
	case len(argv) < 2:
		return 0, usageErrorf("flag needs a value: %s", token)
	case argv[1] == "--":
		return 0, usageErrorf("flag needs a value before --: %s", token)
	default:
		raw, consumed = argv[1], 1
	}

	if err := f.value.set(raw); err != nil {
		return 0, usageErrorf("invalid value for %s: %v", f.display(), err)
	}
	return consumed, nil
}
