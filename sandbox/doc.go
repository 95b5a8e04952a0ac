// Package sandbox provides secure code execution capabilities.
//
// The package implements the host side of snippet execution. PollingRunner
// runs a command under a deadline and kills it once the deadline passes.
// ContainerCLI wraps the docker or podman command line: every snippet gets a
// detached container with networking disabled and resource limits applied,
// and the source is copied in rather than mounted. Scratch keeps the host
// copy of each snippet under a per-author directory.
//
// Usage:
//
//	rt, err := sandbox.NewRuntime(logger, sandbox.RuntimeConfig{Runtime: "docker"})
//	id, err := rt.Start(ctx, "snipbox-python", sandbox.Limits{CPUs: "0.5", Memory: "256m"})
//	res, err := rt.Exec(ctx, id, []string{"python3", "/home/s1.py"}, 5*time.Second)
package sandbox
