package telnet

import "testing"

func TestOptionRegistryGetUpsertHas(t *testing.T) {
	reg := NewOptionRegistry([]OptionDescriptor{
		{ID: OptBinary, Name: "BINARY", LocalSupported: AlwaysSupported, RemoteSupported: AlwaysSupported},
	})

	if !reg.Has(OptBinary) {
		t.Fatalf("Has(OptBinary) = false, want true")
	}
	if reg.Has(OptEcho) {
		t.Fatalf("Has(OptEcho) = true, want false")
	}

	d := reg.Upsert(OptionDescriptor{ID: OptEcho, Name: "ECHO", LocalSupported: AlwaysSupported})
	if d.MaxSubnegotiationSize != defaultMaxSubnegotiationSize {
		t.Fatalf("Upsert did not normalize MaxSubnegotiationSize: got %d", d.MaxSubnegotiationSize)
	}
	if !reg.Has(OptEcho) {
		t.Fatalf("Has(OptEcho) = false after Upsert, want true")
	}

	got, ok := reg.Get(OptEcho)
	if !ok || !got.LocalSupported() {
		t.Fatalf("Get(OptEcho) = %+v, %v", got, ok)
	}
}

func TestOptionRegistryUnsortedPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic constructing registry from an unsorted list")
		}
	}()
	NewOptionRegistry([]OptionDescriptor{
		{ID: OptEcho},
		{ID: OptBinary},
	})
}

func TestOptionRegistryIDsSorted(t *testing.T) {
	reg := NewOptionRegistry([]OptionDescriptor{
		{ID: OptBinary},
		{ID: OptSuppressGA},
		{ID: OptStatus},
	})
	ids := reg.IDs()
	want := []OptionID{OptBinary, OptSuppressGA, OptStatus}
	if len(ids) != len(want) {
		t.Fatalf("IDs() returned %d entries, want %d", len(ids), len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("IDs()[%d] = %v, want %v", i, ids[i], id)
		}
	}
}

func TestDescriptorUnlimitedSubnegotiation(t *testing.T) {
	d := newOptionDescriptor(OptionDescriptor{ID: OptStatus, MaxSubnegotiationSize: Unlimited})
	if d.maxSize() != 0 {
		t.Fatalf("maxSize() = %d, want 0 (unlimited)", d.maxSize())
	}
}
