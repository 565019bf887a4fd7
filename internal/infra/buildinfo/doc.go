// Package buildinfo provides build information for respkv.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv-go/internal/infra/buildinfo.Version=v0.1.0"
//
// When Commit is not injected it is taken from the VCS stamp embedded by
// the Go toolchain, if present.
package buildinfo
