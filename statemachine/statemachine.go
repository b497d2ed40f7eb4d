// Package statemachine owns the project status transitions. Every status write
// performed by the render service or the worker goes through Next, so the set
// of legal transitions lives in exactly one place.
package statemachine

import (
	"fmt"

	"render-orchestrator/constant"
)

type Event string

const (
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventCancel   Event = "cancel"
	EventRetry    Event = "retry"
)

type transition struct {
	from  constant.ProjectStatus
	event Event
}

var videoTransitions = map[transition]constant.ProjectStatus{
	{constant.ProjectStatusDraft, EventStart}:        constant.ProjectStatusRendering,
	{constant.ProjectStatusRendering, EventComplete}: constant.ProjectStatusRendered,
	{constant.ProjectStatusRendering, EventFail}:     constant.ProjectStatusFailed,
	{constant.ProjectStatusRendering, EventCancel}:   constant.ProjectStatusDraft,
	{constant.ProjectStatusFailed, EventRetry}:       constant.ProjectStatusRendering,
}

var printTransitions = map[transition]constant.ProjectStatus{
	{constant.ProjectStatusDraft, EventStart}:        constant.ProjectStatusExporting,
	{constant.ProjectStatusExporting, EventComplete}: constant.ProjectStatusExported,
	{constant.ProjectStatusExporting, EventFail}:     constant.ProjectStatusFailed,
	{constant.ProjectStatusExporting, EventCancel}:   constant.ProjectStatusDraft,
	{constant.ProjectStatusFailed, EventRetry}:       constant.ProjectStatusExporting,
}

// Next returns the status a project of the given kind moves to when event is
// applied in state from. Transitions absent from the allow-list are rejected.
func Next(kind constant.ProjectKind, from constant.ProjectStatus, event Event) (constant.ProjectStatus, error) {
	table := videoTransitions
	if kind == constant.ProjectKindPrint {
		table = printTransitions
	}
	to, ok := table[transition{from: from, event: event}]
	if !ok {
		return "", fmt.Errorf("illegal transition: %s project in state %s cannot %s", kind, from, event)
	}
	return to, nil
}

// ActiveStatus returns the in-flight status for a project kind.
func ActiveStatus(kind constant.ProjectKind) constant.ProjectStatus {
	if kind == constant.ProjectKindPrint {
		return constant.ProjectStatusExporting
	}
	return constant.ProjectStatusRendering
}

// DoneStatus returns the successful terminal status for a project kind.
func DoneStatus(kind constant.ProjectKind) constant.ProjectStatus {
	if kind == constant.ProjectKindPrint {
		return constant.ProjectStatusExported
	}
	return constant.ProjectStatusRendered
}
