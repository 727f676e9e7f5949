package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"join request", &JoinRequest{Name: "Ada", Password: "hunter2"}},
		{"join rejected", &JoinRejected{Reason: "Lobby is full"}},
		{"draft select", &DraftSelect{CardIndex: 2}},
		{"reroll", &Reroll{DieIndex: 1}},
		{"continue", &Continue{ToPhase: "station"}},
		{"purchase car", &PurchaseCar{CarID: "boxcar"}},
		{"end turn", &EndTurn{}},
		{"ping", &Ping{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg.Type(), got.Type())
			require.Equal(t, tc.msg, got)
		})
	}
}

func TestEncodeStampsTimestamp(t *testing.T) {
	data, err := Encode(&Roll{})
	require.NoError(t, err)
	require.Contains(t, string(data), `"timestamp"`)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"warp_drive","payload":{},"timestamp":0}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestDecodeBadJSON(t *testing.T) {
	if _, err := Decode([]byte(`{nope`)); err == nil {
		t.Fatalf("expected error for malformed envelope")
	}
}
