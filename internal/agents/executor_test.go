/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agents

import (
	"testing"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestExecuteByType_KnownActionTypesSucceed(t *testing.T) {
	cases := []model.ActionType{
		model.ActionSetPosture,
		model.ActionPublishGatewayAdvisory,
		model.ActionEscalateOps,
		model.ActionHoldCargo,
		model.ActionRebookFlight,
		model.ActionNotifyCustomer,
	}
	for _, typ := range cases {
		ok, note := executeByType(nil, model.Action{Type: typ})
		if !ok {
			t.Errorf("executeByType(%s) ok = false, want true", typ)
		}
		if note == "" {
			t.Errorf("executeByType(%s) note is empty", typ)
		}
	}
}

func TestExecuteByType_UnknownActionTypeFails(t *testing.T) {
	ok, note := executeByType(nil, model.Action{Type: model.ActionType("NOT_A_REAL_TYPE")})
	if ok {
		t.Error("executeByType(unknown) ok = true, want false")
	}
	if note == "" {
		t.Error("executeByType(unknown) note is empty, want an explanation")
	}
}
