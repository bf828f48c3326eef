package ports

// Navigator performs the hard navigation to the login entry point after logout.
type Navigator interface {
	ToLogin(reason string)
}
