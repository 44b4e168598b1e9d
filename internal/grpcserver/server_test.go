package grpcserver_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"phab/internal/grpcserver"
	"phab/internal/logging"
)

// dial starts a server on an in-memory listener and connects to it.
func dial(t *testing.T, logs *bytes.Buffer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpcserver.New(logging.New(logs, true))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestFetchWatchlist(t *testing.T) {
	var logs bytes.Buffer
	client := grpcserver.NewTaskServiceClient(dial(t, &logs))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in, _ := structpb.NewStruct(map[string]interface{}{"watchlist_id": "ignored"})
	out, err := client.FetchWatchlist(ctx, in)
	if err != nil {
		t.Fatalf("FetchWatchlist error: %v", err)
	}

	id := out.GetFields()["tasks"].GetStructValue().GetFields()["id"].GetStringValue()
	if id != "wat" {
		t.Errorf("expected tasks.id wat, got %q (response %v)", id, out)
	}

	if !strings.Contains(logs.String(), "method="+grpcserver.FetchWatchlistMethod) {
		t.Errorf("expected call to be logged, got %q", logs.String())
	}
	if !strings.Contains(logs.String(), "code=OK") {
		t.Errorf("expected status code in log, got %q", logs.String())
	}
}

func TestFetchWatchlist_EmptyInput(t *testing.T) {
	var logs bytes.Buffer
	client := grpcserver.NewTaskServiceClient(dial(t, &logs))

	out, err := client.FetchWatchlist(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("FetchWatchlist error: %v", err)
	}
	if len(out.GetFields()) != 1 {
		t.Errorf("expected only the tasks field, got %v", out)
	}
}

func TestHealth(t *testing.T) {
	var logs bytes.Buffer
	health := healthpb.NewHealthClient(dial(t, &logs))

	for _, service := range []string{"", grpcserver.ServiceName} {
		resp, err := health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error: %v", service, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q): expected SERVING, got %v", service, resp.GetStatus())
		}
	}
}

func TestTaskService_Direct(t *testing.T) {
	out, err := (&grpcserver.TaskService{}).FetchWatchlist(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchWatchlist error: %v", err)
	}
	if got := out.AsMap()["tasks"].(map[string]interface{})["id"]; got != "wat" {
		t.Errorf("expected wat, got %v", got)
	}
}
