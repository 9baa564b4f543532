package status

import "testing"

func TestIsActive(t *testing.T) {
	active := []Status{Pending, Scheduling, Initializing, Running, Failing, Paused, ModeratorPaused}
	for _, s := range active {
		if !IsActive(s) {
			t.Errorf("IsActive(%s) = false, want true", s)
		}
	}
	terminal := []Status{Completed, Stopped, Rejected, Failed, Terminated}
	for _, s := range terminal {
		if IsActive(s) {
			t.Errorf("IsActive(%s) = true, want false", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if IsValid(Status("bogus")) {
		t.Error("IsValid(bogus) = true, want false")
	}
	if !IsValid(Running) {
		t.Error("IsValid(running) = false, want true")
	}
}

func TestNotifiableCommands(t *testing.T) {
	cases := map[Command]bool{
		CmdStop:            true,
		CmdPause:           true,
		CmdResume:          true,
		CmdModeratorPaused: true,
		CmdRestart:         false,
		CmdTerminated:      false,
		Command("bogus"):   false,
	}
	for cmd, want := range cases {
		if got := cmd.Notifiable(); got != want {
			t.Errorf("Command(%s).Notifiable() = %v, want %v", cmd, got, want)
		}
	}
}

func TestStatusForAndMessageFor(t *testing.T) {
	if s, ok := StatusFor(CmdPause); !ok || s != Paused {
		t.Errorf("StatusFor(pause) = (%s, %v), want (paused, true)", s, ok)
	}
	if _, ok := StatusFor(CmdRestart); ok {
		t.Error("StatusFor(restart) ok = true, want false")
	}

	msg, ok := MessageFor(CmdModeratorPaused)
	if !ok || msg.Kind != MsgJobPause || msg.Scope != SlicerOnly {
		t.Errorf("MessageFor(moderator_paused) = %+v, want {cluster:job:pause SlicerOnly}", msg)
	}

	msg, ok = MessageFor(CmdStop)
	if !ok || msg.Kind != MsgJobStop || msg.Scope != AllNodes {
		t.Errorf("MessageFor(stop) = %+v, want {cluster:job:stop AllNodes}", msg)
	}
}
