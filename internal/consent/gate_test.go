package consent

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

type panicStore struct{}

func (panicStore) Load() (Preferences, bool) {
	panic("storage unavailable")
}

func TestGate_CanTrack(t *testing.T) {
	granted := NewMemoryStore()
	granted.Save(Preferences{Analytics: true})

	denied := NewMemoryStore()
	denied.Save(Preferences{Analytics: false, Marketing: true})

	cases := map[string]struct {
		gate     *Gate
		expected bool
	}{
		"granted":               {gate: NewGate(granted), expected: true},
		"denied":                {gate: NewGate(denied), expected: false},
		"no record":             {gate: NewGate(NewMemoryStore()), expected: false},
		"nil store":             {gate: NewGate(nil), expected: false},
		"nil gate":              {gate: nil, expected: false},
		"panicking store":       {gate: NewGate(panicStore{}), expected: false},
		"raw granted":           {gate: NewGate(NewRawStore(Encode(Preferences{Analytics: true}))), expected: true},
		"raw empty":             {gate: NewGate(NewRawStore("")), expected: false},
		"raw not base64":        {gate: NewGate(NewRawStore("%%%")), expected: false},
		"raw not json":          {gate: NewGate(NewRawStore(base64.RawURLEncoding.EncodeToString([]byte("yes")))), expected: false},
		"raw wrong value type":  {gate: NewGate(NewRawStore(base64.RawURLEncoding.EncodeToString([]byte(`{"analytics":"true"}`)))), expected: false},
		"raw missing analytics": {gate: NewGate(NewRawStore(base64.RawURLEncoding.EncodeToString([]byte(`{"marketing":true}`)))), expected: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.gate.CanTrack())
		})
	}
}

func TestGate_RereadsStore(t *testing.T) {
	store := NewRawStore("")
	gate := NewGate(store)
	require.False(t, gate.CanTrack())

	store.Set(Encode(Preferences{Analytics: true}))
	require.True(t, gate.CanTrack())

	store.Set(Encode(Preferences{Analytics: false}))
	require.False(t, gate.CanTrack())

	mem := NewMemoryStore()
	mem.Save(Preferences{Analytics: true})
	gate = NewGate(mem)
	require.True(t, gate.CanTrack())
	mem.Clear()
	require.False(t, gate.CanTrack())
}

func TestDecode(t *testing.T) {
	in := Preferences{Analytics: true, Functional: true}
	out, err := Decode(Encode(in))
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = Decode("not base64!")
	require.Error(t, err)
}
