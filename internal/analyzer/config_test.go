package analyzer

import (
	"errors"
	"reflect"
	"testing"
)

func TestConfigDupIsIndependent(t *testing.T) {
	base := DefaultTemplate()
	dup, err := base.Dup()
	if err != nil {
		t.Fatalf("dup: %v", err)
	}

	dup.SetInt("audio.sample-rate", 8000)
	if v, _ := base.GetInt("audio.sample-rate"); v != 44100 {
		t.Fatalf("duplicate mutated the original: %d", v)
	}
}

func TestConfigDupNil(t *testing.T) {
	var cfg *Config
	if _, err := cfg.Dup(); !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("expected ErrNoTemplate, got %v", err)
	}
}

func TestConfigSetOverwritesKeepingOrder(t *testing.T) {
	cfg := NewConfig()
	cfg.SetFloat("a", 1)
	cfg.SetBool("b", true)
	cfg.SetFloat("a", 2)

	if got := cfg.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if v, _ := cfg.GetFloat("a"); v != 2 {
		t.Fatalf("overwrite lost: %v", v)
	}
}

func TestConfigWireRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.SetFloat("audio.cutoff", 15000)
	cfg.SetInt("audio.sample-rate", 44100)
	cfg.SetBool("audio.squelch", true)
	cfg.SetString("audio.label", "uplink")

	payload, err := cfg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseConfig(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !reflect.DeepEqual(got.Names(), cfg.Names()) {
		t.Fatalf("field order lost: %v != %v", got.Names(), cfg.Names())
	}
	if v, _ := got.GetFloat("audio.cutoff"); v != 15000 {
		t.Fatalf("cutoff: %v", v)
	}
	if v, _ := got.GetInt("audio.sample-rate"); v != 44100 {
		t.Fatalf("sample-rate: %v", v)
	}
	if v, _ := got.GetBool("audio.squelch"); !v {
		t.Fatalf("squelch lost")
	}
	if v, ok := got.Get("audio.label"); !ok || v.Str != "uplink" {
		t.Fatalf("label lost: %+v", v)
	}
}

func TestConfigTypedGettersRejectWrongType(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("n", 7)
	if _, ok := cfg.GetFloat("n"); ok {
		t.Fatal("GetFloat should refuse an integer field")
	}
	if _, ok := cfg.GetBool("missing"); ok {
		t.Fatal("GetBool should refuse a missing field")
	}
}
