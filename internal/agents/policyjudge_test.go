/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agents

import (
	"context"
	"testing"
)

func TestHasBookingEvidence_NoCascadeAirportIsFalseWithoutTouchingStore(t *testing.T) {
	rc := &RunContext{} // CascadeAirportID is uuid.Nil, Store stays nil

	got, err := hasBookingEvidence(context.Background(), rc)
	if err != nil {
		t.Fatalf("hasBookingEvidence: %v", err)
	}
	if got {
		t.Error("hasBookingEvidence = true, want false when no airport node has been recorded")
	}
}
