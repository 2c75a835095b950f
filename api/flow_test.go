package api_test

import (
	"testing"

	"github.com/momentics/hioload-reactor/api"
)

func TestFlowControlModify(t *testing.T) {
	cases := []struct {
		from api.FlowControl
		mod  api.FlowModifier
		want api.FlowControl
	}{
		{api.FlowWait, api.EnableRead, api.FlowRead},
		{api.FlowRead, api.EnableWrite, api.FlowReadWrite},
		{api.FlowReadWrite, api.DisableWrite, api.FlowRead},
		{api.FlowReadWrite, api.DisableReadWrite, api.FlowWait},
		{api.FlowRead, api.DisableReadEnableWrite, api.FlowWrite},
		{api.FlowWrite, api.EnableReadDisableWrite, api.FlowRead},
		{api.FlowConnect, api.DisableConnect | api.EnableRead, api.FlowRead},
		{api.FlowAccept, api.DisableRead, api.FlowAccept},
		// enable wins over disable of the same direction
		{api.FlowWait, api.DisableRead | api.EnableRead, api.FlowRead},
	}
	for _, c := range cases {
		if got := c.from.Modify(c.mod); got != c.want {
			t.Errorf("%v.Modify(%#x) = %v, want %v", c.from, uint8(c.mod), got, c.want)
		}
	}
}

func TestFlowControlPredicates(t *testing.T) {
	f := api.FlowAccept | api.FlowWrite
	if !f.IsAcceptEnabled() || f.IsConnectEnabled() || f.IsReadEnabled() || !f.IsWriteEnabled() {
		t.Fatalf("unexpected predicates for %v", f)
	}
}

func TestFlowControlString(t *testing.T) {
	cases := map[api.FlowControl]string{
		api.FlowWait:                     "wait",
		api.FlowRead:                     "read",
		api.FlowReadWrite:                "read|write",
		api.FlowAccept | api.FlowConnect: "accept|connect",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestFlowModifierParts(t *testing.T) {
	m := api.DisableReadEnableWrite
	if m.Enables() != api.FlowWrite {
		t.Errorf("Enables() = %v", m.Enables())
	}
	if m.Disables() != api.FlowRead {
		t.Errorf("Disables() = %v", m.Disables())
	}
}

func TestErrPanicUnwrap(t *testing.T) {
	err := &api.ErrPanic{Value: api.ErrChannelClosed}
	if err.Unwrap() != api.ErrChannelClosed {
		t.Fatal("ErrPanic should unwrap a recovered error")
	}
	if (&api.ErrPanic{Value: 42}).Error() != "panic: 42" {
		t.Fatal("unexpected message for non-error panic value")
	}
}
