// Package types provides type-safe constants for the updater.
//
// This package centralizes the enumerated values shared by the update
// pipeline, the file replacer and the CLI, replacing magic strings with typed
// constants that provide validation methods.
package types

import (
	"fmt"
	"strings"
)

// State is a step of the update pipeline.
type State string

const (
	// StateChecking resolves the release reference and compares versions.
	StateChecking State = "CHECKING"
	// StateDownloading fetches the release archive into the staging area.
	StateDownloading State = "DOWNLOADING"
	// StateExtracting unpacks the archive and locates the payload root.
	StateExtracting State = "EXTRACTING"
	// StateStoppingProcesses terminates running instances of the application.
	StateStoppingProcesses State = "STOPPING_PROCESSES"
	// StateBackingUp snapshots the install directory.
	StateBackingUp State = "BACKING_UP"
	// StateReplacing installs every payload file.
	StateReplacing State = "REPLACING"
	// StateVerifying applies the acceptance threshold.
	StateVerifying State = "VERIFYING"
	// StateDone is the successful terminal state.
	StateDone State = "DONE"
	// StateFailed is the failing terminal state.
	StateFailed State = "FAILED"
)

// AllStates returns the pipeline states in execution order, terminal states last.
func AllStates() []State {
	return []State{
		StateChecking, StateDownloading, StateExtracting, StateStoppingProcesses,
		StateBackingUp, StateReplacing, StateVerifying, StateDone, StateFailed,
	}
}

// Validate checks if the State is a valid value.
func (s State) Validate() error {
	switch s {
	case StateChecking, StateDownloading, StateExtracting, StateStoppingProcesses,
		StateBackingUp, StateReplacing, StateVerifying, StateDone, StateFailed:
		return nil
	case "":
		return fmt.Errorf("state is required")
	default:
		return fmt.Errorf("invalid state '%s'", s)
	}
}

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for DONE and FAILED.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// MutatesInstall returns true if the install directory may have been changed
// once the pipeline has reached this state.
func (s State) MutatesInstall() bool {
	return s == StateReplacing || s == StateVerifying
}

// ParseState parses a string into a State.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(s))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// Strategy names a file replacement technique.
type Strategy string

const (
	// StrategyDirect backs up the target and overwrites it in place.
	StrategyDirect Strategy = "direct"
	// StrategySwap renames the target aside before copying the new file in.
	StrategySwap Strategy = "swap"
	// StrategyForced clears attributes and force-deletes the target first.
	StrategyForced Strategy = "forced"
	// StrategySkipped records that every strategy failed.
	StrategySkipped Strategy = "skipped"
)

// AllStrategies returns the replacement strategies in the order they are tried.
func AllStrategies() []Strategy {
	return []Strategy{StrategyDirect, StrategySwap, StrategyForced}
}

// Validate checks if the Strategy is a valid value.
func (s Strategy) Validate() error {
	switch s {
	case StrategyDirect, StrategySwap, StrategyForced, StrategySkipped:
		return nil
	case "":
		return fmt.Errorf("strategy is required")
	default:
		return fmt.Errorf("invalid strategy '%s' (must be direct, swap, forced, or skipped)", s)
	}
}

// String returns the string representation of the Strategy.
func (s Strategy) String() string {
	return string(s)
}

// Succeeded returns true if the strategy installed the file.
func (s Strategy) Succeeded() bool {
	return s != "" && s != StrategySkipped
}

// ParseStrategy parses a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(s))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// ReferenceKind classifies an update reference.
type ReferenceKind string

const (
	// ReferenceDescriptor is a local structured release descriptor file.
	ReferenceDescriptor ReferenceKind = "descriptor"
	// ReferenceArchive is a local path or URL pointing straight at an archive.
	ReferenceArchive ReferenceKind = "archive"
	// ReferenceMetadata is a remote URL serving a release descriptor.
	ReferenceMetadata ReferenceKind = "metadata"
)

// AllReferenceKinds returns all valid reference kinds.
func AllReferenceKinds() []ReferenceKind {
	return []ReferenceKind{ReferenceDescriptor, ReferenceArchive, ReferenceMetadata}
}

// Validate checks if the ReferenceKind is a valid value.
func (k ReferenceKind) Validate() error {
	switch k {
	case ReferenceDescriptor, ReferenceArchive, ReferenceMetadata:
		return nil
	case "":
		return fmt.Errorf("reference kind is required")
	default:
		return fmt.Errorf("invalid reference kind '%s' (must be descriptor, archive, or metadata)", k)
	}
}

// String returns the string representation of the ReferenceKind.
func (k ReferenceKind) String() string {
	return string(k)
}

// IsRemote returns true if the reference must be fetched over the network.
func (k ReferenceKind) IsRemote() bool {
	return k == ReferenceMetadata
}

// ParseReferenceKind parses a string into a ReferenceKind.
func ParseReferenceKind(s string) (ReferenceKind, error) {
	rk := ReferenceKind(strings.ToLower(s))
	if err := rk.Validate(); err != nil {
		return "", err
	}
	return rk, nil
}
