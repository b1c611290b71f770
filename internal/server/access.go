package server

import (
	"fmt"
	"net/http"
	"slices"
)

const (
	RolePublic = "public"
	RoleCoach  = "coach"
	RoleClient = "client"
)

type AccessRule struct {
	Method string
	Path   string
	Roles  []string
}

var endpointAccess = []AccessRule{
	{Method: http.MethodGet, Path: "/", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/register", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/verify", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/resend-code", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/login", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/auth/refreshToken", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/forgot-password", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/changePassword", Roles: []string{RolePublic}},

	{Method: http.MethodGet, Path: "/auth/me", Roles: []string{RoleCoach, RoleClient}},
	{Method: http.MethodPost, Path: "/accounts", Roles: []string{RoleCoach}},
	{Method: http.MethodGet, Path: "/accounts/{id}", Roles: []string{RoleCoach}},
	{Method: http.MethodPut, Path: "/accounts/{id}", Roles: []string{RoleCoach}},
	{Method: http.MethodPut, Path: "/accounts/{id}/status", Roles: []string{RoleCoach}},
}

func accessRoles(method, path string) []string {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Roles
		}
	}
	panic(fmt.Sprintf("missing access roles for %s %s", method, path))
}

func roleAllowed(roles []string, role string) bool {
	return slices.Contains(roles, role)
}

func isPublicAccess(roles []string) bool {
	return roleAllowed(roles, RolePublic)
}
