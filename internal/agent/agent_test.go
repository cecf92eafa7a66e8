package agent

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	transport := fmt.Errorf("send turn: %w", &TransportError{Op: "post", Err: errors.New("connection refused")})
	remote := fmt.Errorf("send turn: %w", &RemoteError{StatusCode: 500, Status: "500 Internal Server Error"})

	if !IsTransport(transport) || IsRemote(transport) {
		t.Fatalf("transport error misclassified: %v", transport)
	}
	if !IsRemote(remote) || IsTransport(remote) {
		t.Fatalf("remote error misclassified: %v", remote)
	}
	if IsTransport(errors.New("plain")) || IsRemote(errors.New("plain")) {
		t.Fatal("plain error must not be classified")
	}
}

func TestErrorMessages(t *testing.T) {
	te := &TransportError{Op: "post", Err: errors.New("timeout")}
	if te.Error() != "transport: post: timeout" {
		t.Fatalf("unexpected transport message: %q", te.Error())
	}
	if !errors.Is(te, te.Err) {
		t.Fatal("transport error must unwrap to its cause")
	}

	re := &RemoteError{StatusCode: 401, Body: "invalid token"}
	if !strings.Contains(re.Error(), "401") || !strings.Contains(re.Error(), "invalid token") {
		t.Fatalf("unexpected remote message: %q", re.Error())
	}
}
