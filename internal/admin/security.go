package admin

import (
	"context"
	"net/url"
	"sort"
)

// securityPageSize bounds getRoles/getUsers; the admin API pages these lists.
const securityPageSize = "10000"

// SecurityConfig returns the security settings tree from /security/config.
func (s *Session) SecurityConfig(ctx context.Context) (map[string]any, error) {
	raw, err := s.call(ctx, "/security/config", nil)
	if err != nil {
		return nil, err
	}
	return responseObject("security config", raw)
}

// ListRoles returns every role in the role store. An empty slice means the
// store has no roles, which usually means security is not configured.
func (s *Session) ListRoles(ctx context.Context) ([]Role, error) {
	const op = "list roles"

	raw, err := s.call(ctx, "/security/roles/getRoles", pageParams())
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	entries, err := objectList(op, obj, "roles")
	if err != nil {
		return nil, err
	}

	roles := make([]Role, 0, len(entries))
	for _, e := range entries {
		name, err := stringField(op, e, "rolename")
		if err != nil {
			return nil, err
		}
		desc, _ := scalarString(e["description"])
		roles = append(roles, Role{Name: name, Description: desc})
	}
	return roles, nil
}

// ListUsers returns every user in the user store.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	const op = "list users"

	raw, err := s.call(ctx, "/security/users/getUsers", pageParams())
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	entries, err := objectList(op, obj, "users")
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(entries))
	for _, e := range entries {
		name, err := stringField(op, e, "username")
		if err != nil {
			return nil, err
		}
		u := User{Username: name, Fields: make(map[string]string, len(e))}
		for k, v := range e {
			if text, ok := scalarString(v); ok {
				u.Fields[k] = text
			}
		}
		u.FullName = u.Fields["fullname"]
		u.Description = u.Fields["description"]
		u.Email = u.Fields["email"]
		users = append(users, u)
	}
	return users, nil
}

// UsersInRole returns the users assigned to role.
func (s *Session) UsersInRole(ctx context.Context, role string) ([]string, error) {
	const op = "list users in role"

	params := url.Values{}
	params.Set("rolename", role)
	raw, err := s.call(ctx, "/security/roles/getUsersWithinRole", params)
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	return stringList(op, obj, "users")
}

// RolesForUser returns the roles assigned to user.
func (s *Session) RolesForUser(ctx context.Context, user string) ([]string, error) {
	const op = "list roles for user"

	params := url.Values{}
	params.Set("username", user)
	raw, err := s.call(ctx, "/security/roles/getRolesForUser", params)
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	return stringList(op, obj, "roles")
}

func pageParams() url.Values {
	params := url.Values{}
	params.Set("startIndex", "0")
	params.Set("pageSize", securityPageSize)
	return params
}

// FieldNames returns the user's attribute names in sorted order.
func (u User) FieldNames() []string {
	names := make([]string, 0, len(u.Fields))
	for k := range u.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
