// Package request is the typed outbound API client for OpenVerse
// services. Routes are declared once per service with their HTTP method
// and path template; the client resolves them against the shared
// Settings and normalizes every response into a response.Envelope.
package request

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Service identifies a collaborating service. The values match the
// PROJECT_NAME / port settings in pkg/config.
type Service string

const (
	Users          Service = "USERS"
	Authentication Service = "AUTHENTICATION"
)

// Route couples an endpoint path template with the one HTTP method it
// accepts. Path segments in braces are substituted from params at call
// time.
type Route struct {
	Name   string
	Method string
	Path   string
}

// Users service routes.
var (
	CreateUser        = Route{Name: "create_user", Method: http.MethodPost, Path: "/users/create"}
	GetUserByID       = Route{Name: "get_user_by_id", Method: http.MethodGet, Path: "/users/get/{id}"}
	GetUserByLogin    = Route{Name: "get_user_by_login", Method: http.MethodGet, Path: "/users/login/{user_login}"}
	UpdateUser        = Route{Name: "update_user", Method: http.MethodPut, Path: "/users/update"}
	DeleteUserByID    = Route{Name: "delete_user_by_id", Method: http.MethodDelete, Path: "/users/delete/{user_id}"}
	DeleteUserByLogin = Route{Name: "delete_user_by_login", Method: http.MethodDelete, Path: "/users/delete/login/{user_login}"}
	LogIn             = Route{Name: "log_in", Method: http.MethodPost, Path: "/users/log_in"}
	UsersHealth       = Route{Name: "users_health", Method: http.MethodGet, Path: "/health"}
)

// Authentication service routes.
var (
	GetAccessToken  = Route{Name: "get_access_token", Method: http.MethodGet, Path: "/auth/token"}
	GetRefreshToken = Route{Name: "get_refresh_token", Method: http.MethodGet, Path: "/auth/refresh"}
	GetUserInfo     = Route{Name: "get_user_info", Method: http.MethodGet, Path: "/auth/user/info"}
	AuthHealth      = Route{Name: "auth_health", Method: http.MethodGet, Path: "/health"}
)

var routesByService = map[Service][]Route{
	Users: {
		CreateUser, GetUserByID, GetUserByLogin, UpdateUser,
		DeleteUserByID, DeleteUserByLogin, LogIn, UsersHealth,
	},
	Authentication: {
		GetAccessToken, GetRefreshToken, GetUserInfo, AuthHealth,
	},
}

// Routes returns the route table for a service, or nil for an unknown
// service.
func Routes(service Service) []Route {
	return routesByService[service]
}

// RouteByName looks a route up by its name within a service.
func RouteByName(service Service, name string) (Route, bool) {
	for _, r := range routesByService[service] {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// lookup confirms the route is registered for the service.
func lookup(service Service, route Route) error {
	table, ok := routesByService[service]
	if !ok {
		return fmt.Errorf("request: unknown service %q", service)
	}
	for _, r := range table {
		if r == route {
			return nil
		}
	}
	return fmt.Errorf("request: route %q is not registered for service %q", route.Name, service)
}

var paramPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Resolve substitutes path parameters into the route template. Every
// placeholder must be supplied; extra params are ignored.
func Resolve(route Route, params map[string]string) (string, error) {
	var missing []string
	path := paramPattern.ReplaceAllStringFunc(route.Path, func(m string) string {
		key := strings.Trim(m, "{}")
		value, ok := params[key]
		if !ok || value == "" {
			missing = append(missing, key)
			return m
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("request: route %q is missing parameters: %s",
			route.Name, strings.Join(missing, ", "))
	}
	return path, nil
}
