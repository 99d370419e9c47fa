/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package ingestion

import (
	"testing"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestEvidenceCache_MissOnEmptyCache(t *testing.T) {
	c := NewEvidenceCache(time.Minute)
	if _, ok := c.Get("KJFK"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestEvidenceCache_HitBeforeTTLExpires(t *testing.T) {
	c := NewEvidenceCache(time.Hour)
	want := []IngestionResult{{Source: model.SourceFAA, Success: true}}
	c.Put("KJFK", want)

	got, ok := c.Get("KJFK")
	if !ok {
		t.Fatal("expected cache hit within TTL")
	}
	if len(got) != 1 || got[0].Source != model.SourceFAA {
		t.Errorf("got = %+v, want %+v", got, want)
	}
}

func TestEvidenceCache_MissAfterTTLExpires(t *testing.T) {
	c := NewEvidenceCache(time.Nanosecond)
	c.Put("KJFK", []IngestionResult{{Source: model.SourceFAA, Success: true}})
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("KJFK"); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestEvidenceCache_IsolatedByAirport(t *testing.T) {
	c := NewEvidenceCache(time.Hour)
	c.Put("KJFK", []IngestionResult{{Source: model.SourceFAA}})

	if _, ok := c.Get("KLAX"); ok {
		t.Error("expected miss for an airport never cached")
	}
}
