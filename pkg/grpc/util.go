package grpc

import (
	"errors"
	"regexp"
	"strings"
)

var (
	healthServicePrefix = "/grpc.health.v1.Health/"
	fullMethodNameRegex = regexp.MustCompile("/([a-zA-Z0-9]+\\.)+[a-zA-Z0-9]+/[a-zA-Z0-9]+")
)

// ParseFullMethodName parses a gRPC full method name into its components
func ParseFullMethodName(fullMethodName string) (packageName, serviceName, methodName string, err error) {
	if !fullMethodNameRegex.Match([]byte(fullMethodName)) {
		return "", "", "", errors.New("invalid full method name")
	}

	parts := strings.Split(fullMethodName, "/")
	methodName = parts[2]

	parts = strings.Split(parts[1], ".")
	serviceName = parts[len(parts)-1]
	packageName = strings.Join(parts[:len(parts)-1], ".")

	return packageName, serviceName, methodName, nil
}

// IsHealthCheckEndpoint returns whether a method belongs to the gRPC health
// service, covering both Check and Watch
func IsHealthCheckEndpoint(fullMethodName string) bool {
	return strings.HasPrefix(fullMethodName, healthServicePrefix)
}
