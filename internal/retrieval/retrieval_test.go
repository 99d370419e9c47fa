/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package retrieval

import "testing"

func TestJaccard_BothEmptyIsZero(t *testing.T) {
	if got := jaccard(nil, nil); got != 0 {
		t.Errorf("jaccard(nil, nil) = %f, want 0", got)
	}
}

func TestJaccard_IdenticalSetsIsOne(t *testing.T) {
	a := []string{"GROUND_STOP", "WEATHER_ADVISORY"}
	b := []string{"WEATHER_ADVISORY", "GROUND_STOP"}
	if got := jaccard(a, b); got != 1 {
		t.Errorf("jaccard(a, b) = %f, want 1", got)
	}
}

func TestJaccard_DisjointSetsIsZero(t *testing.T) {
	a := []string{"GROUND_STOP"}
	b := []string{"LANE_DELAY"}
	if got := jaccard(a, b); got != 0 {
		t.Errorf("jaccard(a, b) = %f, want 0", got)
	}
}

func TestJaccard_PartialOverlap(t *testing.T) {
	a := []string{"GROUND_STOP", "WEATHER_ADVISORY"}
	b := []string{"WEATHER_ADVISORY", "LANE_DELAY"}
	// intersection = {WEATHER_ADVISORY} = 1, union = 3
	want := 1.0 / 3.0
	if got := jaccard(a, b); got != want {
		t.Errorf("jaccard(a, b) = %f, want %f", got, want)
	}
}

func TestJaccard_CaseInsensitive(t *testing.T) {
	a := []string{"ground_stop"}
	b := []string{"GROUND_STOP"}
	if got := jaccard(a, b); got != 1 {
		t.Errorf("jaccard with mismatched case = %f, want 1", got)
	}
}

func TestToSet_DedupesAndUppercases(t *testing.T) {
	set := toSet([]string{"ground_stop", "GROUND_STOP", "lane_delay"})
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
	if !set["GROUND_STOP"] || !set["LANE_DELAY"] {
		t.Errorf("set = %v, want GROUND_STOP and LANE_DELAY present", set)
	}
}
