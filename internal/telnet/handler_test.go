package telnet

import "testing"

func TestHandlerRegistryRegisterUnregister(t *testing.T) {
	reg := NewHandlerRegistry()
	if reg.get(OptNAWS) != nil {
		t.Fatalf("get on empty registry returned a set")
	}

	called := false
	reg.Register(OptNAWS, HandlerSet{
		OnEnable: func(s *Stream, id OptionID, dir Direction) error { called = true; return nil },
	})

	set := reg.get(OptNAWS)
	if set == nil || set.OnEnable == nil {
		t.Fatalf("get after Register = %+v, want a populated set", set)
	}
	set.OnEnable(nil, OptNAWS, Local)
	if !called {
		t.Fatalf("stored OnEnable callback was not the one registered")
	}

	reg.Unregister(OptNAWS)
	if reg.get(OptNAWS) != nil {
		t.Fatalf("get after Unregister still returned a set")
	}
}
