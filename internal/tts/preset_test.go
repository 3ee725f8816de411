package tts

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestResolvePreset_Builtin(t *testing.T) {
	p, err := ResolvePreset("professional_female", nil)
	if err != nil {
		t.Fatalf("ResolvePreset failed: %v", err)
	}
	if p.ProviderVoice != "en-US-Chirp3-HD-Leda" {
		t.Errorf("ProviderVoice = %q, want en-US-Chirp3-HD-Leda", p.ProviderVoice)
	}
	if p.LanguageCode != "en-US" {
		t.Errorf("LanguageCode = %q, want en-US", p.LanguageCode)
	}
	if p.SpeakingRate != 0.9 || p.VolumeGainDb != 1.0 {
		t.Errorf("rate/gain = %v/%v, want 0.9/1.0", p.SpeakingRate, p.VolumeGainDb)
	}
}

func TestResolvePreset_Unknown(t *testing.T) {
	_, err := ResolvePreset("does_not_exist", nil)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	// 报错信息要列出可用预设，方便用户改配置
	if !strings.Contains(err.Error(), "professional_female") {
		t.Errorf("error should list available presets, got %q", err.Error())
	}
}

func TestResolvePreset_ExtraOverridesBuiltin(t *testing.T) {
	extra := []VoicePreset{{
		Name:          "professional_female",
		ProviderVoice: "en-US-Neural2-F",
	}}
	p, err := ResolvePreset("professional_female", extra)
	if err != nil {
		t.Fatalf("ResolvePreset failed: %v", err)
	}
	if p.ProviderVoice != "en-US-Neural2-F" {
		t.Errorf("extra preset should override builtin, got %q", p.ProviderVoice)
	}
	// 自定义预设缺省字段要补齐
	if p.LanguageCode != "en-US" {
		t.Errorf("LanguageCode = %q, want en-US default", p.LanguageCode)
	}
	if p.SpeakingRate != 1.0 {
		t.Errorf("SpeakingRate = %v, want 1.0 default", p.SpeakingRate)
	}
}

func TestResolvePreset_ExtraNewName(t *testing.T) {
	extra := []VoicePreset{{
		Name:          "mandarin_male",
		ProviderVoice: "cmn-CN-Chirp3-HD-Orus",
		LanguageCode:  "cmn-CN",
		SpeakingRate:  1.1,
	}}
	p, err := ResolvePreset("mandarin_male", extra)
	if err != nil {
		t.Fatalf("ResolvePreset failed: %v", err)
	}
	if p.ProviderVoice != "cmn-CN-Chirp3-HD-Orus" || p.SpeakingRate != 1.1 {
		t.Errorf("unexpected preset: %+v", p)
	}
}

func TestPresetNames(t *testing.T) {
	names := PresetNames()
	if len(names) != 4 {
		t.Fatalf("expected 4 builtin presets, got %d: %v", len(names), names)
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("preset names should be sorted, got %v", names)
	}
	for _, want := range []string{"confident_male", "professional_female", "authoritative_neutral", "fast_review"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("builtin preset %q missing from %v", want, names)
		}
	}
}

func TestLookupPreset(t *testing.T) {
	if _, ok := LookupPreset("fast_review"); !ok {
		t.Error("fast_review should be a builtin preset")
	}
	if _, ok := LookupPreset("nope"); ok {
		t.Error("unknown name should not resolve")
	}
}
