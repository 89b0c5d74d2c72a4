package auth

// Known OAuth scopes used by the registry.
const (
	ScopeActivitiesSignup = "activities:signup"
)
