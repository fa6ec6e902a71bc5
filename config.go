package tclcore

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Settings is the interpreter-wide configuration object: the
// encoding search path, default system encoding, background-error
// handler command name, and compression level and read-ahead limit
// all live here. The runtime does not read these entries back itself;
// they are held for the embedding host.
//
// The typed-cell pattern (SetBool/GetBool, SetInt/GetInt, ...) is
// deliberately kept from the teacher's Config even though a plain
// map[string]any would be shorter, because it's what lets callers
// catch a wrong-type lookup immediately instead of via a failed type
// assertion three calls later.
type Settings map[string]*settingVal

// NewSettings creates a Settings object primed with the defaults this
// runtime core needs.
func NewSettings() *Settings {
	m := make(Settings)
	m.SetString("encoding.system", "utf-8")
	m.SetStringSlice("encoding.search_path", nil)
	m.SetString("bgerror.handler", "::tcl::Bgerror")
	m.SetInt("compress.level", -1) // -1 == zlib "default compression"
	m.SetInt("compress.read_ahead_limit", 4096)
	return &m
}

type settingValType int

const (
	settingValType_Undefined settingValType = iota
	settingValType_Bool
	settingValType_Int
	settingValType_String
	settingValType_StringSlice
)

func (vt settingValType) String() string {
	return map[settingValType]string{
		settingValType_Undefined:   "undefined",
		settingValType_Bool:        "bool",
		settingValType_Int:         "int",
		settingValType_String:      "string",
		settingValType_StringSlice: "string_slice",
	}[vt]
}

type settingVal struct {
	typ       settingValType
	asBool    bool
	asInt     int
	asString  string
	asStrings []string
}

func (v *settingVal) assignType(vt settingValType) {
	if v.typ != vt && v.typ != settingValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to setting of type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *settingVal) checkType(vt settingValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` setting", vt, v.typ))
	}
}

func (c *Settings) SetBool(path string, v bool) {
	val := &settingVal{}
	val.assignType(settingValType_Bool)
	val.asBool = v
	(*c)[path] = val
}

func (c *Settings) SetInt(path string, v int) {
	val := &settingVal{}
	val.assignType(settingValType_Int)
	val.asInt = v
	(*c)[path] = val
}

func (c *Settings) SetString(path string, v string) {
	val := &settingVal{}
	val.assignType(settingValType_String)
	val.asString = v
	(*c)[path] = val
}

func (c *Settings) SetStringSlice(path string, v []string) {
	val := &settingVal{}
	val.assignType(settingValType_StringSlice)
	val.asStrings = v
	(*c)[path] = val
}

func (c *Settings) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(settingValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting `%s` does not exist", path))
}

func (c *Settings) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(settingValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting `%s` does not exist", path))
}

func (c *Settings) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(settingValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("string setting `%s` does not exist", path))
}

func (c *Settings) GetStringSlice(path string) []string {
	if val, ok := (*c)[path]; ok {
		val.checkType(settingValType_StringSlice)
		return val.asStrings
	}
	panic(fmt.Sprintf("string_slice setting `%s` does not exist", path))
}

// settingsDoc is the shape accepted by LoadYAML. Only the fields a
// host is realistically expected to override are exposed; everything
// else keeps its NewSettings default.
type settingsDoc struct {
	Encoding struct {
		System     string   `yaml:"system"`
		SearchPath []string `yaml:"search_path"`
	} `yaml:"encoding"`
	Bgerror struct {
		Handler string `yaml:"handler"`
	} `yaml:"bgerror"`
	Compress struct {
		Level          *int `yaml:"level"`
		ReadAheadLimit *int `yaml:"read_ahead_limit"`
	} `yaml:"compress"`
}

// LoadYAML overlays settings read from r onto the receiver, leaving
// any field absent from the document untouched.
func (c *Settings) LoadYAML(r io.Reader) error {
	var doc settingsDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return NewRuntimeError(ErrTypeMismatch, "settings: invalid yaml: %s", err)
	}
	if doc.Encoding.System != "" {
		c.SetString("encoding.system", doc.Encoding.System)
	}
	if doc.Encoding.SearchPath != nil {
		c.SetStringSlice("encoding.search_path", doc.Encoding.SearchPath)
	}
	if doc.Bgerror.Handler != "" {
		c.SetString("bgerror.handler", doc.Bgerror.Handler)
	}
	if doc.Compress.Level != nil {
		c.SetInt("compress.level", *doc.Compress.Level)
	}
	if doc.Compress.ReadAheadLimit != nil {
		c.SetInt("compress.read_ahead_limit", *doc.Compress.ReadAheadLimit)
	}
	return nil
}
