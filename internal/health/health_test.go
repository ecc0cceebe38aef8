package health

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func startHealth(t *testing.T, db Pinger) (*Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New(db, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		<-done
	})
	return srv, healthpb.NewHealthClient(conn)
}

func status(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) failed: %v", service, err)
	}
	return resp.GetStatus()
}

func TestOverallServing(t *testing.T) {
	_, client := startHealth(t, nil)

	if got := status(t, client, ServiceOverall); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}
	if got := status(t, client, ServiceStore); got != healthpb.HealthCheckResponse_UNKNOWN {
		t.Errorf("Expected UNKNOWN before the first check, got %v", got)
	}
}

func TestStoreStatusFollowsPing(t *testing.T) {
	db := &fakePinger{}
	srv, client := startHealth(t, db)
	ctx := context.Background()

	srv.check(ctx)
	if got := status(t, client, ServiceStore); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}

	db.set(errors.New("database is locked"))
	srv.check(ctx)
	if got := status(t, client, ServiceStore); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", got)
	}
	if got := status(t, client, ServiceOverall); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Store outage must not fail the process, got %v", got)
	}
}

func TestMonitorStopsWithContext(t *testing.T) {
	srv, client := startHealth(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Monitor(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for status(t, client, ServiceStore) != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("Expected the first check to run immediately")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected monitor to stop")
	}
}
