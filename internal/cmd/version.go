package cmd

const appName = "gatewayd"

// version is set at build time using -ldflags "-X github.com/gpupool/gatewayd/internal/cmd.version=...".
var version = "dev"

// AppName returns the name of the application.
func AppName() string {
	return appName
}

// Version returns the build version of the application.
func Version() string {
	return version
}
