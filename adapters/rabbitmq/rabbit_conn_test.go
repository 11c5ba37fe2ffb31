package rabbitmq_test

import (
	"errors"
	"testing"

	"github.com/next-trace/scg-jobtest/adapters/rabbitmq"
	berr "github.com/next-trace/scg-jobtest/contract/errors"
)

func TestNewWithAMQPConn_EmptyURL(t *testing.T) {
	_, _, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: "", ConnTimeout: 0})
	if err == nil {
		t.Fatalf("expected error for empty URL")
	}

	if !errors.Is(err, berr.ErrEnqueueFailed) {
		t.Fatalf("want ErrEnqueueFailed prefix, got %v", err)
	}
}
