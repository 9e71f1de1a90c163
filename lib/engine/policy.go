// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "fmt"

// BusyPolicy decides what SelectFiles does while a run is active.
type BusyPolicy string

const (
	// PolicyQueue runs requests one after another in arrival order.
	PolicyQueue BusyPolicy = "queue"

	// PolicyCancel cancels the active run, drops any waiting run, and
	// starts the new request once the cancelled run has drained.
	PolicyCancel BusyPolicy = "cancel"
)

// ParseBusyPolicy resolves a policy name. The empty string means
// PolicyQueue.
func ParseBusyPolicy(name string) (BusyPolicy, error) {
	switch BusyPolicy(name) {
	case "", PolicyQueue:
		return PolicyQueue, nil
	case PolicyCancel:
		return PolicyCancel, nil
	}
	return "", fmt.Errorf("unknown busy policy %q (want %q or %q)", name, PolicyQueue, PolicyCancel)
}
