package analyzer

import (
	"errors"
	"fmt"

	"github.com/sigstream/sigstream/internal/wire"
)

// ErrNoTemplate is returned when duplicating an absent configuration.
var ErrNoTemplate = errors.New("analyzer: no configuration to duplicate")

// FieldType enumerates the value types a config field may carry. The remote
// analyzer owns the schema; clients treat field names as opaque keys.
type FieldType byte

const (
	FieldBool FieldType = iota + 1
	FieldInt
	FieldFloat
	FieldString
)

// FieldValue is one typed configuration value.
type FieldValue struct {
	Type  FieldType
	Bool  bool
	Int   uint64
	Float float64
	Str   string
}

// Config is a named set of typed parameters for a remote inspector. Field
// order is preserved so serialized configs are stable.
type Config struct {
	names  []string
	fields map[string]FieldValue
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{fields: make(map[string]FieldValue)}
}

// Dup deep-copies the configuration. Duplicating a nil config fails; the
// caller is expected to treat that as a lost template, not a crash.
func (c *Config) Dup() (*Config, error) {
	if c == nil {
		return nil, ErrNoTemplate
	}
	out := NewConfig()
	out.names = append(out.names, c.names...)
	for k, v := range c.fields {
		out.fields[k] = v
	}
	return out, nil
}

func (c *Config) put(name string, v FieldValue) {
	if _, ok := c.fields[name]; !ok {
		c.names = append(c.names, name)
	}
	c.fields[name] = v
}

// SetBool sets a boolean field.
func (c *Config) SetBool(name string, v bool) {
	c.put(name, FieldValue{Type: FieldBool, Bool: v})
}

// SetInt sets an integer field.
func (c *Config) SetInt(name string, v uint64) {
	c.put(name, FieldValue{Type: FieldInt, Int: v})
}

// SetFloat sets a float field.
func (c *Config) SetFloat(name string, v float64) {
	c.put(name, FieldValue{Type: FieldFloat, Float: v})
}

// SetString sets a string field.
func (c *Config) SetString(name, v string) {
	c.put(name, FieldValue{Type: FieldString, Str: v})
}

// Get returns the raw field value.
func (c *Config) Get(name string) (FieldValue, bool) {
	if c == nil {
		return FieldValue{}, false
	}
	v, ok := c.fields[name]
	return v, ok
}

// GetInt returns an integer field value.
func (c *Config) GetInt(name string) (uint64, bool) {
	v, ok := c.Get(name)
	if !ok || v.Type != FieldInt {
		return 0, false
	}
	return v.Int, true
}

// GetFloat returns a float field value.
func (c *Config) GetFloat(name string) (float64, bool) {
	v, ok := c.Get(name)
	if !ok || v.Type != FieldFloat {
		return 0, false
	}
	return v.Float, true
}

// GetBool returns a boolean field value.
func (c *Config) GetBool(name string) (bool, bool) {
	v, ok := c.Get(name)
	if !ok || v.Type != FieldBool {
		return false, false
	}
	return v.Bool, true
}

// Names returns the field names in insertion order.
func (c *Config) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Config payload entry tags.
const (
	cfgTagName   byte = 0x01
	cfgTagBool   byte = 0x02
	cfgTagInt    byte = 0x03
	cfgTagFloat  byte = 0x04
	cfgTagString byte = 0x05
)

// MarshalBinary serializes the config as a TLV entry sequence suitable for
// embedding in a wire packet field.
func (c *Config) MarshalBinary() ([]byte, error) {
	if c == nil {
		return nil, ErrNoTemplate
	}
	buf := make([]byte, 0, 128)
	for _, name := range c.names {
		v := c.fields[name]
		buf = wire.AppendString(buf, cfgTagName, name)
		switch v.Type {
		case FieldBool:
			buf = wire.AppendBool(buf, cfgTagBool, v.Bool)
		case FieldInt:
			buf = wire.AppendUint64(buf, cfgTagInt, v.Int)
		case FieldFloat:
			buf = wire.AppendFloat64(buf, cfgTagFloat, v.Float)
		case FieldString:
			buf = wire.AppendString(buf, cfgTagString, v.Str)
		default:
			return nil, fmt.Errorf("analyzer: field %q has unknown type %d", name, v.Type)
		}
	}
	return wire.Terminate(buf), nil
}

// ParseConfig decodes a config payload produced by MarshalBinary.
func ParseConfig(b []byte) (*Config, error) {
	// Reuse the packet field scanner by faking a packet header.
	pkt, err := wire.Parse(append([]byte{0, 0}, b...))
	if err != nil {
		return nil, fmt.Errorf("analyzer: config payload: %w", err)
	}
	cfg := NewConfig()
	var name string
	for _, f := range pkt.Fields {
		switch f.Tag {
		case cfgTagName:
			name = f.String()
		case cfgTagBool:
			cfg.SetBool(name, f.Bool())
		case cfgTagInt:
			cfg.SetInt(name, f.Uint64())
		case cfgTagFloat:
			cfg.SetFloat(name, f.Float64())
		case cfgTagString:
			cfg.SetString(name, f.String())
		default:
			return nil, fmt.Errorf("analyzer: config payload: unknown entry tag %d", f.Tag)
		}
	}
	return cfg, nil
}
