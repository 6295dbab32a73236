package etp

import (
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) identity.PrivateKey {
	t.Helper()
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	return key
}

// TestProtocolMessageRoundTrip checks that every Etm variant survives an
// Encode/Decode cycle unchanged, since a signature (when the payload itself
// is a signed value) is only ever computed over this exact encoding.
func TestProtocolMessageRoundTrip(t *testing.T) {
	to := mustKey(t).PublicKey()
	caller := mustKey(t).PublicKey()

	cases := []struct {
		name string
		etm  Etm
	}{
		{"send", SendEtm([]byte("hello"))},
		{"send-empty", SendEtm(nil)},
		{"ack", AckEtm(MessageId(42))},
		{"connected", ConnectedEtm(caller)},
		{"disconnected", DisconnectedEtm()},
		{"reconnect", ReConnectEtm()},
		{"ping", PingEtm()},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg := ProtocolMessage{To: to, Id: MessageId(7), Payload: c.etm}
			encoded := msg.Encode()

			decoded, err := DecodeProtocolMessage(encoded)
			require.NoError(t, err)
			require.Equal(t, msg.To, decoded.To)
			require.Equal(t, msg.Id, decoded.Id)
			require.Equal(t, msg.Payload.Kind, decoded.Payload.Kind)

			switch c.etm.Kind {
			case EtmSend:
				require.Equal(t, msg.Payload.Payload, decoded.Payload.Payload)
			case EtmAck:
				require.Equal(t, msg.Payload.Acked, decoded.Payload.Acked)
			case EtmConnected:
				require.Equal(t, msg.Payload.Caller, decoded.Payload.Caller)
			}
		})
	}
}

// TestDecodeProtocolMessageRejectsTrailingBytes enforces the deny-unknown
// -fields guarantee: any byte appended after a valid encoding must fail to
// decode rather than being silently ignored.
func TestDecodeProtocolMessageRejectsTrailingBytes(t *testing.T) {
	msg := ProtocolMessage{To: mustKey(t).PublicKey(), Id: MessageId(1), Payload: PingEtm()}
	encoded := append(msg.Encode(), 0xFF)
	_, err := DecodeProtocolMessage(encoded)
	require.Error(t, err)
}

func TestRequiresAck(t *testing.T) {
	require.True(t, SendEtm(nil).RequiresAck())
	require.False(t, AckEtm(1).RequiresAck())
	require.False(t, ConnectedEtm(identity.PublicKey{}).RequiresAck())
	require.False(t, DisconnectedEtm().RequiresAck())
	require.False(t, ReConnectEtm().RequiresAck())
	require.False(t, PingEtm().RequiresAck())
}

func TestInboxTopic(t *testing.T) {
	pk := mustKey(t).PublicKey()
	require.Equal(t, pk.String()+"/inbox", InboxTopic(pk))
}
