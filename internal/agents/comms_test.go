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

func TestRequiresNotification_TrueForNotifyingActionType(t *testing.T) {
	actions := []model.Action{{Type: model.ActionHoldCargo}}
	if !RequiresNotification(actions) {
		t.Error("expected HOLD_CARGO to require notification")
	}
}

func TestRequiresNotification_FalseForSetPostureOnly(t *testing.T) {
	actions := []model.Action{{Type: model.ActionSetPosture}}
	if RequiresNotification(actions) {
		t.Error("expected SET_POSTURE alone to not require notification")
	}
}

func TestRequiresNotification_TrueIfAnyActionNotifies(t *testing.T) {
	actions := []model.Action{
		{Type: model.ActionSetPosture},
		{Type: model.ActionNotifyCustomer},
	}
	if !RequiresNotification(actions) {
		t.Error("expected mixed action list with a notifying type to require notification")
	}
}

func TestRequiresNotification_EmptyIsFalse(t *testing.T) {
	if RequiresNotification(nil) {
		t.Error("expected no actions to not require notification")
	}
}
