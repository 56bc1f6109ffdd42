// Package auth maps mTLS client identities to roles and roles to the
// SlotService methods they may call.
//
// A client's role is the first OrganizationalUnit of its verified
// certificate.
package auth

import (
	"context"
	"fmt"
	"slices"

	api "github.com/nixpig/benchworker/api/v1"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

type Permission string

const (
	PermissionSlotStart  Permission = "slot:start"
	PermissionSlotKill   Permission = "slot:kill"
	PermissionSlotStatus Permission = "slot:status"
	PermissionSlotResult Permission = "slot:result"
)

type Role string

const (
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

var RolePermissions = map[Role][]Permission{
	RoleOperator: {
		PermissionSlotStart,
		PermissionSlotKill,
		PermissionSlotStatus,
		PermissionSlotResult,
	},
	RoleViewer: {PermissionSlotStatus, PermissionSlotResult},
}

// MethodPermissions is the permission required by each gRPC method.
//
// NOTE: Retrieving results of a finished job releases them, so viewers can
// consume results they didn't produce.
var MethodPermissions = map[string]Permission{
	api.SlotService_StartJob_FullMethodName:  PermissionSlotStart,
	api.SlotService_KillJob_FullMethodName:   PermissionSlotKill,
	api.SlotService_KillAll_FullMethodName:   PermissionSlotKill,
	api.SlotService_Status_FullMethodName:    PermissionSlotStatus,
	api.SlotService_JobResult_FullMethodName: PermissionSlotResult,
}

// Identity is who a client is, taken from its verified certificate.
type Identity struct {
	CommonName string
	Role       Role
}

func GetClientIdentity(ctx context.Context) (Identity, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return Identity{}, fmt.Errorf("failed to get peer info from context")
	}

	tlsInfo, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return Identity{}, fmt.Errorf("failed to get TLS info from peer auth info")
	}

	if len(tlsInfo.State.VerifiedChains) == 0 ||
		len(tlsInfo.State.VerifiedChains[0]) == 0 {
		return Identity{}, fmt.Errorf("no verified chains in TLS info")
	}

	cert := tlsInfo.State.VerifiedChains[0][0]

	id := Identity{CommonName: cert.Subject.CommonName}
	if len(cert.Subject.OrganizationalUnit) > 0 {
		id.Role = Role(cert.Subject.OrganizationalUnit[0])
	}

	return id, nil
}

func IsAuthorised(clientRole Role, method string) error {
	required, exists := MethodPermissions[method]
	if !exists {
		return fmt.Errorf("method '%s' not in method permissions", method)
	}

	permissions, ok := RolePermissions[clientRole]
	if !ok {
		return fmt.Errorf("role '%s' not in role permissions", clientRole)
	}

	if !slices.Contains(permissions, required) {
		return fmt.Errorf("role '%s' lacks permission '%s'", clientRole, required)
	}

	return nil
}

// Authorise checks the client in ctx may call method and returns its
// Identity. The Identity is returned on failure too, when it could be read.
func Authorise(ctx context.Context, method string) (Identity, error) {
	id, err := GetClientIdentity(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("get client identity: %w", err)
	}

	if err := IsAuthorised(id.Role, method); err != nil {
		return id, fmt.Errorf("authorise client: %w", err)
	}

	return id, nil
}
