package types

import (
	"testing"
)

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		st      State
		wantErr bool
	}{
		{"checking valid", StateChecking, false},
		{"failed valid", StateFailed, false},
		{"empty invalid", "", true},
		{"invalid value", "RESTORING", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("State.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStateHelpers(t *testing.T) {
	if !StateDone.IsTerminal() || !StateFailed.IsTerminal() {
		t.Error("DONE and FAILED should be terminal")
	}
	if StateReplacing.IsTerminal() {
		t.Error("REPLACING should not be terminal")
	}
	if !StateReplacing.MutatesInstall() {
		t.Error("REPLACING should mutate the install dir")
	}
	if StateBackingUp.MutatesInstall() {
		t.Error("BACKING_UP should not mutate the install dir")
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input   string
		want    State
		wantErr bool
	}{
		{"checking", StateChecking, false},
		{"STOPPING_PROCESSES", StateStoppingProcesses, false},
		{"", "", true},
		{"cleanup", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseState(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseState(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllStates(t *testing.T) {
	states := AllStates()
	if len(states) != 9 {
		t.Fatalf("AllStates() returned %d states, want 9", len(states))
	}
	if states[0] != StateChecking {
		t.Errorf("first state = %v, want CHECKING", states[0])
	}
	for _, s := range states {
		if err := s.Validate(); err != nil {
			t.Errorf("AllStates() contains invalid state %v", s)
		}
	}
}

func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		wantErr bool
	}{
		{"direct valid", StrategyDirect, false},
		{"swap valid", StrategySwap, false},
		{"forced valid", StrategyForced, false},
		{"skipped valid", StrategySkipped, false},
		{"empty invalid", "", true},
		{"invalid value", "atomic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Strategy.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStrategySucceeded(t *testing.T) {
	for _, s := range AllStrategies() {
		if !s.Succeeded() {
			t.Errorf("%v.Succeeded() should be true", s)
		}
	}
	if StrategySkipped.Succeeded() {
		t.Error("skipped.Succeeded() should be false")
	}
	if Strategy("").Succeeded() {
		t.Error("empty.Succeeded() should be false")
	}
}

func TestAllStrategiesOrder(t *testing.T) {
	want := []Strategy{StrategyDirect, StrategySwap, StrategyForced}
	got := AllStrategies()
	if len(got) != len(want) {
		t.Fatalf("AllStrategies() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllStrategies()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("SWAP")
	if err != nil {
		t.Fatalf("ParseStrategy() error = %v", err)
	}
	if got != StrategySwap {
		t.Errorf("ParseStrategy() = %v, want swap", got)
	}
	if _, err := ParseStrategy("nope"); err == nil {
		t.Error("ParseStrategy(nope) expected error")
	}
}

func TestReferenceKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ReferenceKind
		remote  bool
		wantErr bool
	}{
		{"descriptor", ReferenceDescriptor, false, false},
		{"Archive", ReferenceArchive, false, false},
		{"METADATA", ReferenceMetadata, true, false},
		{"", "", false, true},
		{"ftp", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseReferenceKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReferenceKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseReferenceKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !tt.wantErr && got.IsRemote() != tt.remote {
				t.Errorf("%v.IsRemote() = %v, want %v", got, got.IsRemote(), tt.remote)
			}
		})
	}
	if len(AllReferenceKinds()) != 3 {
		t.Errorf("AllReferenceKinds() length = %d, want 3", len(AllReferenceKinds()))
	}
}
