package auth_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"testing"

	api "github.com/nixpig/benchworker/api/v1"
	"github.com/nixpig/benchworker/internal/auth"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

func peerContext(t *testing.T, cn string, ou ...string) context.Context {
	t.Helper()

	cert := &x509.Certificate{
		Subject: pkix.Name{
			CommonName:         cn,
			OrganizationalUnit: ou,
		},
	}

	authInfo := credentials.TLSInfo{
		State: tls.ConnectionState{
			VerifiedChains: [][]*x509.Certificate{{cert}},
		},
	}

	return peer.NewContext(t.Context(), &peer.Peer{AuthInfo: authInfo})
}

func TestIsAuthorised(t *testing.T) {
	t.Parallel()

	scenarios := map[string]struct {
		role         auth.Role
		method       string
		isAuthorised bool
	}{
		"Test operator can start job": {
			role:         auth.RoleOperator,
			method:       api.SlotService_StartJob_FullMethodName,
			isAuthorised: true,
		},
		"Test operator can kill job": {
			role:         auth.RoleOperator,
			method:       api.SlotService_KillJob_FullMethodName,
			isAuthorised: true,
		},
		"Test operator can kill all": {
			role:         auth.RoleOperator,
			method:       api.SlotService_KillAll_FullMethodName,
			isAuthorised: true,
		},
		"Test operator can query status": {
			role:         auth.RoleOperator,
			method:       api.SlotService_Status_FullMethodName,
			isAuthorised: true,
		},
		"Test operator can retrieve results": {
			role:         auth.RoleOperator,
			method:       api.SlotService_JobResult_FullMethodName,
			isAuthorised: true,
		},

		"Test viewer cannot start job": {
			role:         auth.RoleViewer,
			method:       api.SlotService_StartJob_FullMethodName,
			isAuthorised: false,
		},
		"Test viewer cannot kill job": {
			role:         auth.RoleViewer,
			method:       api.SlotService_KillJob_FullMethodName,
			isAuthorised: false,
		},
		"Test viewer cannot kill all": {
			role:         auth.RoleViewer,
			method:       api.SlotService_KillAll_FullMethodName,
			isAuthorised: false,
		},
		"Test viewer can query status": {
			role:         auth.RoleViewer,
			method:       api.SlotService_Status_FullMethodName,
			isAuthorised: true,
		},
		"Test viewer can retrieve results": {
			role:         auth.RoleViewer,
			method:       api.SlotService_JobResult_FullMethodName,
			isAuthorised: true,
		},

		"Test unknown method returns error": {
			role:         auth.RoleOperator,
			method:       "/bench.v1.SlotService/Unknown",
			isAuthorised: false,
		},
		"Test unknown role returns error": {
			role:         auth.Role("Unknown"),
			method:       api.SlotService_Status_FullMethodName,
			isAuthorised: false,
		},
	}

	for scenario, config := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			err := auth.IsAuthorised(config.role, config.method)

			if config.isAuthorised && err != nil {
				t.Errorf(
					"expected authorised not to return error: got '%v'",
					err,
				)
			}

			if !config.isAuthorised && err == nil {
				t.Errorf("expected not authorised to return error")
			}
		})
	}
}

func TestMethodsHavePermissions(t *testing.T) {
	t.Parallel()

	t.Run("Test all methods have permissions assigned", func(t *testing.T) {
		for _, m := range api.SlotService_ServiceDesc.Methods {
			fullMethodName := fmt.Sprintf(
				"/%s/%s",
				api.SlotService_ServiceDesc.ServiceName,
				m.MethodName,
			)
			if _, exists := auth.MethodPermissions[fullMethodName]; !exists {
				t.Errorf(
					"gRPC method doesn't have permission assigned: '%v'",
					fullMethodName,
				)
			}
		}
	})
}

func TestGetClientIdentity(t *testing.T) {
	t.Parallel()

	t.Run("Test peer with valid TLS info", func(t *testing.T) {
		ctx := peerContext(t, "alice", "operator")

		id, err := auth.GetClientIdentity(ctx)
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.CommonName != "alice" {
			t.Errorf("expected CN: got '%s', want 'alice'", id.CommonName)
		}

		if id.Role != auth.RoleOperator {
			t.Errorf("expected role: got '%s', want 'operator'", id.Role)
		}
	})

	t.Run("Test certificate without OU", func(t *testing.T) {
		ctx := peerContext(t, "dave")

		id, err := auth.GetClientIdentity(ctx)
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.Role != "" {
			t.Errorf("expected role to be empty: got '%s'", id.Role)
		}
	})

	t.Run("Test peer with no TLS info", func(t *testing.T) {
		ctx := peer.NewContext(t.Context(), &peer.Peer{AuthInfo: nil})

		id, err := auth.GetClientIdentity(ctx)
		if err == nil {
			t.Errorf("expected to receive error")
		}

		if id != (auth.Identity{}) {
			t.Errorf("expected identity to be empty: got '%v'", id)
		}
	})

	t.Run("Test no peer in context", func(t *testing.T) {
		id, err := auth.GetClientIdentity(t.Context())
		if err == nil {
			t.Errorf("expected to receive error")
		}

		if id != (auth.Identity{}) {
			t.Errorf("expected identity to be empty: got '%v'", id)
		}
	})
}

func TestAuthorise(t *testing.T) {
	t.Parallel()

	t.Run("Test operator can start job", func(t *testing.T) {
		ctx := peerContext(t, "alice", "operator")

		id, err := auth.Authorise(ctx, api.SlotService_StartJob_FullMethodName)
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.CommonName != "alice" {
			t.Errorf("expected CN: got '%s', want 'alice'", id.CommonName)
		}
	})

	t.Run("Test viewer cannot start job", func(t *testing.T) {
		ctx := peerContext(t, "bob", "viewer")

		id, err := auth.Authorise(ctx, api.SlotService_StartJob_FullMethodName)
		if err == nil {
			t.Errorf("expected to receive error")
		}

		if id.Role != auth.RoleViewer {
			t.Errorf("expected identity on failure: got '%v'", id)
		}
	})

	t.Run("Test viewer can query status", func(t *testing.T) {
		ctx := peerContext(t, "bob", "viewer")

		if _, err := auth.Authorise(ctx, api.SlotService_Status_FullMethodName); err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}
	})

	t.Run("Test unknown role", func(t *testing.T) {
		ctx := peerContext(t, "charlie", "admin")

		if _, err := auth.Authorise(ctx, api.SlotService_Status_FullMethodName); err == nil {
			t.Errorf("expected to receive error")
		}
	})

	t.Run("Test invalid context", func(t *testing.T) {
		if _, err := auth.Authorise(t.Context(), api.SlotService_Status_FullMethodName); err == nil {
			t.Errorf("expected to receive error")
		}
	})
}
