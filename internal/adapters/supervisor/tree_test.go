package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cjfitness/notifier/pkg/logger"
)

type countingService struct {
	name   string
	starts atomic.Int32
	fail   bool
}

func (s *countingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	if s.fail {
		return errors.New("consumer lost its broker")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func TestTree_RestartsFailingServiceInIsolation(t *testing.T) {
	tree := NewTree(logger.Nop(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	scheduler := &countingService{name: "scheduler"}
	consumer := &countingService{name: "kafka-consumer", fail: true}
	server := &countingService{name: "http-server"}
	tree.AddCoreService(scheduler)
	tree.AddMessagingService(consumer)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	assert.Eventually(t, func() bool { return consumer.starts.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), scheduler.starts.Load())
	assert.Equal(t, int32(1), server.starts.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}
