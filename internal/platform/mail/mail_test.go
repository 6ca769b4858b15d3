package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithoutHostIsNoop(t *testing.T) {
	m := New(Config{})
	require.False(t, Enabled(m))
	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.com"}))
	require.True(t, Enabled(New(Config{Host: "smtp.local", Port: 25})))
}

func TestBuildMessageEncodesSubjectAndStripsNewlines(t *testing.T) {
	raw := string(buildMessage("portal@nixcon.local", "ana@x.com\r\nBcc: evil@x.com", "Tarefa vence amanhã", "corpo"))
	require.Contains(t, raw, "To: ana@x.comBcc: evil@x.com\r\n")
	require.NotContains(t, raw, "\r\nBcc:")
	require.Contains(t, raw, "Subject: =?utf-8?q?Tarefa_vence_amanh=C3=A3?=\r\n")
	require.True(t, strings.HasSuffix(raw, "\r\n\r\ncorpo"))
}

func TestSMTPMailerRequiresRecipient(t *testing.T) {
	err := New(Config{Host: "smtp.local", Port: 25}).Send(context.Background(), Message{To: " "})
	require.ErrorIs(t, err, ErrNoRecipient)
}
