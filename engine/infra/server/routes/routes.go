package routes

// Version is the API version used in routing.
const Version = "v1"

// Base returns the versioned API base path (e.g., "/api/v1").
func Base() string {
	return "/api/" + Version
}

// Hooks returns the public webhook ingress base path. It is not versioned so
// that delivery URLs handed to third parties stay stable.
func Hooks() string {
	return "/hooks"
}

func Triggers() string { return Base() + "/triggers" }
func Events() string   { return Base() + "/events" }
func Jobs() string     { return Base() + "/jobs" }

// Health returns the liveness and readiness probe path.
func Health() string {
	return "/healthz"
}
