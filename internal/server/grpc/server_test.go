package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Additional-Code/bistro/pkg/errorbank"
)

func TestHealthServing(t *testing.T) {
	hs := NewHealth()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	server := NewServer(zap.NewNop(), hs)

	ln := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return ln.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestUnaryErrorsMapsKinds(t *testing.T) {
	handler := func(context.Context, any) (any, error) {
		return nil, errorbank.Forbidden("not yours")
	}
	_, err := unaryErrors(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, "not yours", st.Message())
}

func TestUnaryErrorsPassesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := unaryErrors(context.Background(), nil, &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

